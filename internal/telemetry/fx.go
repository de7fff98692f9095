package telemetry

import (
	"go.uber.org/fx"

	telemetrydomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/repository"
)

var Module = fx.Module("telemetry",
	fx.Provide(repository.Provide),
	fx.Provide(func(repo telemetrydomain.Repository) telemetrydomain.Source { return repo }),
)
