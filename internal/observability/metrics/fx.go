package metrics

import (
	"go.uber.org/fx"

	appconfig "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/config"
)

var Module = fx.Module("metrics",
	fx.Provide(FromAppConfig),
	fx.Provide(Snapshot),
	fx.Provide(NewHTTPMetrics),
)

// FromAppConfig maps application settings onto the metrics config.
func FromAppConfig(cfg appconfig.Config) Config {
	return Config{
		ServiceName: "storageguard",
		Environment: cfg.Environment,
	}
}
