// Package scheduler drives the periodic publish, reconcile and retention
// sweeps over market inventory snapshots.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/clock"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/events"
	marketdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/observability/metrics"
	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
)

const (
	sweepPublish   = "publish"
	sweepReconcile = "reconcile"
	sweepRetention = "retention"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Config    Config
	Repo      snapshotdomain.Repository
	Publisher marketdomain.Service
	Outbox    *events.Outbox           `optional:"true"`
	Metrics   *metrics.SnapshotMetrics `optional:"true"`
}

// Scheduler owns its cron runner and sweep state. It is constructed
// explicitly and started/stopped through the fx lifecycle; there is no
// package-level instance.
type Scheduler struct {
	log       *zap.Logger
	clock     clock.Clock
	cfg       Config
	repo      snapshotdomain.Repository
	publisher marketdomain.Service
	outbox    *events.Outbox
	metrics   *metrics.SnapshotMetrics

	cron   *cron.Cron
	cancel context.CancelFunc

	publishRunning   atomic.Bool
	reconcileRunning atomic.Bool
	retentionRunning atomic.Bool
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:       p.Log.Named("scheduler"),
		clock:     p.Clock,
		cfg:       p.Config.withDefaults(),
		repo:      p.Repo,
		publisher: p.Publisher,
		outbox:    p.Outbox,
		metrics:   p.Metrics,
	}
}

// Start registers the three sweep entries and launches the cron runner.
func (s *Scheduler) Start() error {
	if s.cron != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	runner := cron.New()
	entries := []struct {
		name     string
		interval time.Duration
		running  *atomic.Bool
		run      func(context.Context)
	}{
		{sweepPublish, s.cfg.PublishInterval, &s.publishRunning, func(ctx context.Context) {
			if _, err := s.RunPublishSweep(ctx); err != nil {
				s.log.Warn("publish sweep skipped", zap.Error(err))
			}
		}},
		{sweepReconcile, s.cfg.ReconcileInterval, &s.reconcileRunning, func(ctx context.Context) {
			if _, err := s.RunReconcileSweep(ctx); err != nil {
				s.log.Warn("reconcile sweep skipped", zap.Error(err))
			}
		}},
		{sweepRetention, s.cfg.RetentionInterval, &s.retentionRunning, func(ctx context.Context) {
			if _, err := s.RunRetentionSweep(ctx); err != nil {
				s.log.Warn("retention sweep skipped", zap.Error(err))
			}
		}},
	}

	for _, entry := range entries {
		spec := fmt.Sprintf("@every %s", entry.interval)
		if _, err := runner.AddFunc(spec, s.guarded(ctx, entry.name, entry.running, entry.run)); err != nil {
			cancel()
			return err
		}
	}

	s.cron = runner
	s.cron.Start()
	s.log.Info("scheduler started",
		zap.Duration("publish_interval", s.cfg.PublishInterval),
		zap.Duration("reconcile_interval", s.cfg.ReconcileInterval),
		zap.Duration("retention_interval", s.cfg.RetentionInterval),
		zap.Duration("retention_horizon", s.cfg.RetentionHorizon),
	)
	return nil
}

// Stop halts the cron runner and waits for in-flight sweeps to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop().Done()
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.cron = nil
	s.log.Info("scheduler stopped")
	return nil
}

// guarded wraps a sweep so overlapping runs of the same sweep are skipped
// and logged instead of piling up behind a slow external store.
func (s *Scheduler) guarded(ctx context.Context, name string, running *atomic.Bool, run func(context.Context)) func() {
	return func() {
		if !running.CompareAndSwap(false, true) {
			s.log.Warn("previous run still in progress, skipping tick", zap.String("sweep", name))
			s.metrics.IncSweepSkipped(name)
			return
		}
		defer running.Store(false)

		start := time.Now()
		run(ctx)
		s.metrics.ObserveSweepDuration(name, time.Since(start))
	}
}

// Module wires the scheduler into the application lifecycle.
var Module = fx.Module("scheduler",
	fx.Provide(FromAppConfig),
	fx.Provide(New),
	fx.Invoke(runScheduler),
)

func runScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
