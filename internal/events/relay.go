package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RelayConfig controls the outbox relay loop.
type RelayConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BatchSize:    50,
		PollInterval: 2 * time.Second,
	}
}

func (c RelayConfig) withDefaults() RelayConfig {
	defaults := DefaultRelayConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	return c
}

// Relay drains unpublished market_events rows to the broker.
type Relay struct {
	db        *gorm.DB
	log       *zap.Logger
	publisher BrokerPublisher
	cfg       RelayConfig
}

func NewRelay(db *gorm.DB, log *zap.Logger, publisher BrokerPublisher, cfg RelayConfig) *Relay {
	return &Relay{
		db:        db,
		log:       log.Named("events.relay"),
		publisher: publisher,
		cfg:       cfg.withDefaults(),
	}
}

func (r *Relay) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("outbox relay run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Relay) RunOnce(ctx context.Context) error {
	_, err := r.processBatch(ctx, r.cfg.BatchSize)
	return err
}

type relayRow struct {
	ID        snowflake.ID
	EventType string
	Payload   []byte
}

func (r *Relay) processBatch(ctx context.Context, limit int) (int, error) {
	if r.db == nil || r.publisher == nil {
		return 0, errors.New("relay_unavailable")
	}
	if limit <= 0 {
		limit = r.cfg.BatchSize
	}

	relayed := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []relayRow
		if err := tx.WithContext(ctx).Raw(
			`SELECT id, event_type, payload
			 FROM market_events
			 WHERE published = false
			 ORDER BY id
			 FOR UPDATE SKIP LOCKED
			 LIMIT ?`,
			limit,
		).Scan(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		now := time.Now().UTC()
		for _, row := range rows {
			var payload map[string]any
			if len(row.Payload) > 0 {
				// Payload is stored as jsonb; a decode failure is a
				// poison row and gets relayed as an empty body.
				_ = json.Unmarshal(row.Payload, &payload)
			}
			if err := r.publisher.PublishJSON(ctx, row.EventType, payload); err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Exec(
				`UPDATE market_events
				 SET published = true, published_at = ?
				 WHERE id = ?`,
				now,
				row.ID,
			).Error; err != nil {
				return err
			}
			relayed++
		}
		return nil
	})
	return relayed, err
}
