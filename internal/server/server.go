// Package server exposes the HTTP API for bookings, telemetry ingestion
// and snapshot operations.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/clock"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/config"
	marketdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/observability/logger"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/observability/metrics"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/scheduler"
	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
	telemetrydomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/domain"
)

type Params struct {
	fx.In

	Config      config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Node        *snowflake.Node
	Clock       clock.Clock
	Bookings    bookingdomain.Repository
	Telemetry   telemetrydomain.Repository
	Snapshots   snapshotdomain.Synchronizer
	Publisher   marketdomain.Service
	Scheduler   *scheduler.Scheduler
	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

type Server struct {
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	node        *snowflake.Node
	clock       clock.Clock
	bookings    bookingdomain.Repository
	telemetry   telemetrydomain.Repository
	snapshots   snapshotdomain.Synchronizer
	publisher   marketdomain.Service
	sched       *scheduler.Scheduler
	httpMetrics *metrics.HTTPMetrics
	ingestLimit *rateLimiter
}

func New(p Params) *Server {
	return &Server{
		cfg:         p.Config,
		log:         p.Log.Named("server"),
		db:          p.DB,
		node:        p.Node,
		clock:       p.Clock,
		bookings:    p.Bookings,
		telemetry:   p.Telemetry,
		snapshots:   p.Snapshots,
		publisher:   p.Publisher,
		sched:       p.Scheduler,
		httpMetrics: p.HTTPMetrics,
		ingestLimit: newRateLimiter(p.Config.IngestRateLimit, time.Minute),
	}
}

// Router builds the gin engine with all middleware and routes attached.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(metrics.GinMiddleware(s.httpMetrics))

	r.GET("/healthz", s.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/bookings", s.CreateBooking)
		api.GET("/bookings", s.ListBookings)
		api.GET("/bookings/:id", s.GetBooking)
		api.PATCH("/bookings/:id", s.UpdateBooking)

		ingest := api.Group("/telemetry", s.IngestAuthRequired(), s.IngestRateLimited())
		{
			ingest.POST("/readings", s.RecordSensorReading)
			ingest.POST("/pests", s.RecordPestEvent)
		}

		api.POST("/snapshots/:booking_id/sync", s.SyncSnapshot)
		api.GET("/snapshots/:booking_id", s.GetSnapshot)
		api.GET("/snapshots", s.ListSnapshots)

		api.POST("/sweeps/publish", s.TriggerPublishSweep)
		api.POST("/sweeps/reconcile", s.TriggerReconcileSweep)
		api.POST("/sweeps/retention", s.TriggerRetentionSweep)

		api.POST("/test/cleanup", s.TestCleanup)
	}

	return r
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(runHTTP),
)

func runHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}
