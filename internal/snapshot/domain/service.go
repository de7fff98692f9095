package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Synchronizer keeps snapshots consistent with their source booking and
// the freshest telemetry.
type Synchronizer interface {
	// Upsert creates or refreshes the snapshot for a booking. It is
	// cheap and safe at arbitrary frequency; pass publish=true only
	// when the caller wants an immediate external publish instead of
	// waiting for the scheduled sweep.
	Upsert(ctx context.Context, bookingID snowflake.ID, publish bool) (*Snapshot, error)

	Get(ctx context.Context, bookingID snowflake.ID) (*Snapshot, error)
	ListByStatus(ctx context.Context, status SnapshotStatus, limit int) ([]Snapshot, error)
}
