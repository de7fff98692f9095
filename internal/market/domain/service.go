package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service manages publish and reconcile transitions for snapshots.
type Service interface {
	// Publish pushes the snapshot's listing payload to the external
	// store. Publishing an already-published snapshot is an idempotent
	// no-op. Listing-store failures are absorbed into the result and
	// the snapshot is marked failed for the next sweep to retry.
	Publish(ctx context.Context, snapshotID snowflake.ID) (PublishResult, error)

	// Reconcile re-merges telemetry into an already-published snapshot
	// and re-pushes the payload without changing status or
	// published_at. Reconciling a non-published snapshot is a no-op.
	Reconcile(ctx context.Context, snapshotID snowflake.ID) (ReconcileResult, error)
}
