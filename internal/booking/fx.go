package booking

import (
	"go.uber.org/fx"

	bookingdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking/repository"
)

var Module = fx.Module("booking",
	fx.Provide(repository.Provide),
	fx.Provide(func(repo bookingdomain.Repository) bookingdomain.Store { return repo }),
)
