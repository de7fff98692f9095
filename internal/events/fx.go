package events

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/config"
)

var Module = fx.Module("events",
	fx.Provide(NewOutbox),
	fx.Provide(DefaultRelayConfig),
	fx.Invoke(runRelay),
)

// runRelay starts the outbox relay only when a broker is configured. The
// outbox still fills either way; an operator can enable the relay later
// and drain the backlog.
func runRelay(lc fx.Lifecycle, cfg config.Config, db *gorm.DB, log *zap.Logger, relayCfg RelayConfig) {
	if !cfg.RelayEnabled() {
		log.Named("events.relay").Info("no broker configured, relay disabled")
		return
	}

	var (
		publisher *AMQPPublisher
		cancel    context.CancelFunc
	)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p, err := NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
			if err != nil {
				return err
			}
			publisher = p
			relay := NewRelay(db, log, publisher, relayCfg)
			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())
			go relay.RunForever(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if publisher != nil {
				return publisher.Close()
			}
			return nil
		},
	})
}
