package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/buildinfo"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/clock"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/config"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/events"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/migration"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/observability/logger"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/observability/metrics"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/observability/tracing"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/scheduler"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/seed"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/server"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Invoke(func(log *zap.Logger) {
			log.Info("storageguard starting", zap.String("version", buildinfo.Version))
		}),
		metrics.Module,
		tracing.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB, node *snowflake.Node, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if !cfg.IsProduction() && cfg.SeedDemoData {
				return seed.EnsureDemoData(conn, node)
			}
			return nil
		}),
		clock.Module,
		booking.Module,
		telemetry.Module,
		events.Module,
		market.Module,
		snapshot.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}
