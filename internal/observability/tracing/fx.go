package tracing

import (
	"go.uber.org/fx"

	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/buildinfo"
	appconfig "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/config"
)

var Module = fx.Module("tracing",
	fx.Provide(FromAppConfig),
	fx.Invoke(NewProvider),
)

// FromAppConfig maps application settings onto the tracing config.
func FromAppConfig(cfg appconfig.Config) Config {
	return Config{
		Enabled:          cfg.TracingEnabled,
		ServiceName:      "storageguard",
		ServiceVersion:   buildinfo.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.TracingEndpoint,
		ExporterProtocol: cfg.TracingProtocol,
		SamplingRatio:    cfg.TracingSamplingRatio,
	}
}
