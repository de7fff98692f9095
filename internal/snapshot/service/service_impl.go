package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	bookingdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/clock"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/events"
	marketdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/observability/metrics"
	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
	telemetrydomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/domain"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Bookings  bookingdomain.Store
	Telemetry telemetrydomain.Source
	Repo      snapshotdomain.Repository
	Publisher marketdomain.Service
	Outbox    *events.Outbox           `optional:"true"`
	Metrics   *metrics.SnapshotMetrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	bookings  bookingdomain.Store
	telemetry telemetrydomain.Source
	repo      snapshotdomain.Repository
	publisher marketdomain.Service
	outbox    *events.Outbox
	metrics   *metrics.SnapshotMetrics
}

func NewService(p Params) snapshotdomain.Synchronizer {
	return &Service{
		log:       p.Log.Named("snapshot.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		bookings:  p.Bookings,
		telemetry: p.Telemetry,
		repo:      p.Repo,
		publisher: p.Publisher,
		outbox:    p.Outbox,
		metrics:   p.Metrics,
	}
}

// Upsert builds or refreshes the snapshot for a booking. The create/update
// decision is resolved at the storage layer: a losing concurrent insert
// comes back as ErrConflict and is converted into the update path, so the
// caller never sees the race and no duplicate row can exist.
func (s *Service) Upsert(ctx context.Context, bookingID snowflake.ID, publish bool) (*snapshotdomain.Snapshot, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	reading := s.latestTelemetry(ctx, booking.LocationCode)

	snapshot, err := s.repo.FindByBookingRef(ctx, bookingID)
	switch {
	case err == nil:
		snapshot, err = s.refresh(ctx, snapshot, booking, reading)
	case errors.Is(err, snapshotdomain.ErrNotFound):
		snapshot, err = s.create(ctx, booking, reading)
	}
	if err != nil {
		return nil, err
	}

	if publish && snapshot.Status == snapshotdomain.StatusReadyToPublish {
		s.publishInline(ctx, snapshot)
	}
	return snapshot, nil
}

func (s *Service) Get(ctx context.Context, bookingID snowflake.ID) (*snapshotdomain.Snapshot, error) {
	return s.repo.FindByBookingRef(ctx, bookingID)
}

func (s *Service) ListByStatus(ctx context.Context, status snapshotdomain.SnapshotStatus, limit int) ([]snapshotdomain.Snapshot, error) {
	return s.repo.ListByStatus(ctx, status, limit)
}

func (s *Service) create(
	ctx context.Context,
	booking *bookingdomain.Booking,
	reading telemetrydomain.Reading,
) (*snapshotdomain.Snapshot, error) {
	now := s.clock.Now()
	snapshot := &snapshotdomain.Snapshot{
		ID:        s.genID.Generate(),
		Status:    snapshotdomain.StatusReadyToPublish,
		CreatedAt: now,
		UpdatedAt: now,
	}
	snapshot.ApplyBooking(booking)
	if err := snapshot.ApplyTelemetry(reading); err != nil {
		return nil, err
	}

	err := s.repo.Insert(ctx, snapshot)
	if errors.Is(err, snapshotdomain.ErrConflict) {
		// Another writer created the row first; our insert becomes an
		// update of theirs.
		existing, findErr := s.repo.FindByBookingRef(ctx, booking.ID)
		if findErr != nil {
			return nil, findErr
		}
		return s.refresh(ctx, existing, booking, reading)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSyncLag(now.Sub(booking.CreatedAt))
	s.metrics.IncUpsert("created")
	s.emitCreated(ctx, snapshot)
	s.log.Info("snapshot created",
		zap.String("snapshot_id", snapshot.ID.String()),
		zap.String("booking_reference", booking.ID.String()),
	)
	return snapshot, nil
}

// emitCreated records the first materialization of a booking's snapshot
// in the outbox. Creation happens once per booking, so the event is
// deduped by snapshot id.
func (s *Service) emitCreated(ctx context.Context, snapshot *snapshotdomain.Snapshot) {
	if s.outbox == nil {
		return
	}
	payload := events.SnapshotPayload{
		SnapshotID:       snapshot.ID.String(),
		BookingReference: snapshot.BookingReference.String(),
		Status:           string(snapshot.Status),
	}
	err := s.outbox.Publish(ctx, events.Event{
		Type:      events.EventSnapshotCreated,
		Payload:   payload.ToMap(),
		DedupeKey: events.EventSnapshotCreated + ":" + snapshot.ID.String(),
	})
	if err != nil {
		s.log.Warn("failed to enqueue snapshot created event",
			zap.String("snapshot_id", snapshot.ID.String()),
			zap.Error(err),
		)
	}
}

// refresh full-replaces the booking- and telemetry-derived fields on the
// existing row. Status is deliberately untouched: a telemetry tick must
// never flip a published snapshot back to ready_to_publish.
func (s *Service) refresh(
	ctx context.Context,
	snapshot *snapshotdomain.Snapshot,
	booking *bookingdomain.Booking,
	reading telemetrydomain.Reading,
) (*snapshotdomain.Snapshot, error) {
	snapshot.ApplyBooking(booking)
	if err := snapshot.ApplyTelemetry(reading); err != nil {
		return nil, err
	}
	snapshot.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateContent(ctx, snapshot); err != nil {
		return nil, err
	}
	s.metrics.IncUpsert("updated")
	return snapshot, nil
}

// latestTelemetry tolerates an unavailable source: the upsert proceeds
// with whatever the snapshot already holds.
func (s *Service) latestTelemetry(ctx context.Context, locationCode string) telemetrydomain.Reading {
	reading, err := s.telemetry.GetLatest(ctx, locationCode)
	if err != nil {
		s.log.Warn("telemetry unavailable, proceeding without refresh",
			zap.String("location_code", locationCode),
			zap.Error(err),
		)
		return telemetrydomain.Reading{}
	}
	return reading
}

// publishInline runs the immediate-publish side effect of upsert. A
// publish failure degrades the snapshot to failed but never fails the
// upsert: the content is persisted and the sweep retries later.
func (s *Service) publishInline(ctx context.Context, snapshot *snapshotdomain.Snapshot) {
	result, err := s.publisher.Publish(ctx, snapshot.ID)
	if err != nil {
		s.log.Warn("inline publish rejected",
			zap.String("snapshot_id", snapshot.ID.String()),
			zap.Error(err),
		)
		return
	}
	snapshot.Status = result.Status
	snapshot.PublishedAt = result.PublishedAt
	if result.Failed() {
		s.log.Warn("inline publish failed, sweep will retry",
			zap.String("snapshot_id", snapshot.ID.String()),
			zap.String("cause", result.Failure),
		)
	}
}
