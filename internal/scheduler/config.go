package scheduler

import (
	"time"

	appconfig "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/config"
)

// Config controls the three sweep schedules. Intervals are independent:
// a slow publish sweep never delays the reconcile schedule.
type Config struct {
	PublishInterval   time.Duration
	ReconcileInterval time.Duration
	RetentionInterval time.Duration
	RetentionHorizon  time.Duration
	ArchiveExpired    bool
	BatchSize         int
}

func DefaultConfig() Config {
	return Config{
		PublishInterval:   time.Hour,
		ReconcileInterval: time.Hour,
		RetentionInterval: 24 * time.Hour,
		RetentionHorizon:  90 * 24 * time.Hour,
		BatchSize:         100,
	}
}

// FromAppConfig derives the sweep configuration from process settings.
func FromAppConfig(cfg appconfig.Config) Config {
	return Config{
		PublishInterval:   cfg.PublishSweepInterval,
		ReconcileInterval: cfg.ReconcileSweepInterval,
		RetentionInterval: cfg.RetentionSweepInterval,
		RetentionHorizon:  cfg.RetentionHorizon(),
		ArchiveExpired:    cfg.RetentionArchive,
		BatchSize:         cfg.SweepBatchSize,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.PublishInterval <= 0 {
		c.PublishInterval = defaults.PublishInterval
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = defaults.ReconcileInterval
	}
	if c.RetentionInterval <= 0 {
		c.RetentionInterval = defaults.RetentionInterval
	}
	if c.RetentionHorizon <= 0 {
		c.RetentionHorizon = defaults.RetentionHorizon
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c
}
