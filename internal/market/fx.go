package market

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/config"
	marketdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market/listing"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market/service"
)

var Module = fx.Module("market",
	fx.Provide(func(cfg config.Config, log *zap.Logger) (marketdomain.ListingStore, error) {
		return listing.NewClient(listing.Config{
			Endpoint: cfg.ListingEndpoint,
			Timeout:  cfg.ListingTimeout,
			APIKey:   cfg.ListingAPIKey,
		}, log)
	}),
	fx.Provide(service.NewService),
)
