package snapshot

import (
	"go.uber.org/fx"

	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/repository"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/service"
)

var Module = fx.Module("snapshot",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
