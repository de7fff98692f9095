package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository persists snapshots. It owns the at-most-one-per-booking
// invariant: Insert surfaces a unique-index race as ErrConflict so the
// caller can fall back to the update path, and status transitions are
// guarded so stale writers lose.
type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Snapshot, error)
	FindByBookingRef(ctx context.Context, bookingRef snowflake.ID) (*Snapshot, error)

	// Insert creates a new row and returns ErrConflict when another
	// writer inserted a snapshot for the same booking first.
	Insert(ctx context.Context, snapshot *Snapshot) error

	// UpdateContent full-replaces the booking- and telemetry-derived
	// fields of an existing row (last-writer-wins per row) and bumps
	// updated_at. Status and publish timestamps are untouched.
	UpdateContent(ctx context.Context, snapshot *Snapshot) error

	// MarkPublished transitions a row to published, stamping
	// published_at only on the first successful publish. Returns false
	// when the row was not in one of the from statuses.
	MarkPublished(ctx context.Context, id snowflake.ID, at time.Time, from []SnapshotStatus) (bool, error)

	// MarkFailed records a publish failure on the row.
	MarkFailed(ctx context.Context, id snowflake.ID, cause string, at time.Time) error

	ListByStatus(ctx context.Context, status SnapshotStatus, limit int) ([]Snapshot, error)

	// StatusCounts reports the number of snapshots per lifecycle status.
	StatusCounts(ctx context.Context) (map[SnapshotStatus]int64, error)

	// DeleteExpired removes rows created before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// ArchiveExpired flips rows created before the cutoff to archived
	// instead of deleting them, preserving published_at. It returns the
	// archived rows' identifiers so callers can emit lifecycle events.
	ArchiveExpired(ctx context.Context, before time.Time, at time.Time) ([]ArchivedRef, error)
}

// ArchivedRef identifies a snapshot the retention sweep archived.
type ArchivedRef struct {
	ID               snowflake.ID
	BookingReference snowflake.ID
}
