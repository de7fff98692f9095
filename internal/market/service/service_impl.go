package service

import (
	"context"

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
	Clock     clock.Clock
	Repo      snapshotdomain.Repository
	Bookings  bookingdomain.Store
	Telemetry telemetrydomain.Source
	Listing   marketdomain.ListingStore
	Outbox    *events.Outbox           `optional:"true"`
	Metrics   *metrics.SnapshotMetrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	repo      snapshotdomain.Repository
	bookings  bookingdomain.Store
	telemetry telemetrydomain.Source
	listing   marketdomain.ListingStore
	outbox    *events.Outbox
	metrics   *metrics.SnapshotMetrics
}

func NewService(p Params) marketdomain.Service {
	return &Service{
		log:       p.Log.Named("market.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		bookings:  p.Bookings,
		telemetry: p.Telemetry,
		listing:   p.Listing,
		outbox:    p.Outbox,
		metrics:   p.Metrics,
	}
}

// Publish pushes a snapshot's listing payload to the external store and
// transitions the row. A second Publish on an already-published snapshot
// returns the prior result without touching the external store.
func (s *Service) Publish(ctx context.Context, snapshotID snowflake.ID) (marketdomain.PublishResult, error) {
	snapshot, err := s.repo.FindByID(ctx, snapshotID)
	if err != nil {
		return marketdomain.PublishResult{}, err
	}

	result := marketdomain.PublishResult{
		SnapshotID: snapshot.ID,
		Status:     snapshot.Status,
	}

	switch snapshot.Status {
	case snapshotdomain.StatusPublished:
		result.AlreadyPublished = true
		result.PublishedAt = snapshot.PublishedAt
		s.metrics.IncPublish("noop")
		return result, nil
	case snapshotdomain.StatusArchived:
		return result, marketdomain.ErrNotPublishable
	case snapshotdomain.StatusReadyToPublish, snapshotdomain.StatusFailed:
		// fall through to the external call
	default:
		return result, snapshotdomain.ErrInvalidStatus
	}

	payload, err := marketdomain.BuildListingPayload(snapshot)
	if err != nil {
		return result, err
	}

	now := s.clock.Now()
	if err := s.listing.PublishListing(ctx, payload); err != nil {
		// Publish failures are retryable, not fatal: record on the row
		// and report through the result so sweeps keep moving.
		if markErr := s.repo.MarkFailed(ctx, snapshot.ID, err.Error(), now); markErr != nil {
			s.log.Error("failed to record publish failure",
				zap.String("snapshot_id", snapshot.ID.String()),
				zap.Error(markErr),
			)
		}
		s.metrics.IncPublish("failed")
		result.Status = snapshotdomain.StatusFailed
		result.Failure = err.Error()
		snapshot.Status = snapshotdomain.StatusFailed
		s.emitEvent(ctx, events.EventSnapshotFailed, snapshot, err.Error())
		return result, nil
	}

	updated, err := s.repo.MarkPublished(ctx, snapshot.ID, now, []snapshotdomain.SnapshotStatus{
		snapshotdomain.StatusReadyToPublish,
		snapshotdomain.StatusFailed,
	})
	if err != nil {
		return result, err
	}
	if !updated {
		// A concurrent publisher won the transition; surface its state.
		current, findErr := s.repo.FindByID(ctx, snapshot.ID)
		if findErr != nil {
			return result, findErr
		}
		result.Status = current.Status
		result.PublishedAt = current.PublishedAt
		result.AlreadyPublished = current.Status == snapshotdomain.StatusPublished
		return result, nil
	}

	result.Status = snapshotdomain.StatusPublished
	result.PublishedAt = &now
	snapshot.Status = snapshotdomain.StatusPublished
	snapshot.PublishedAt = &now
	s.metrics.IncPublish("success")
	s.emitEvent(ctx, events.EventSnapshotPublished, snapshot, "")
	s.log.Info("snapshot published",
		zap.String("snapshot_id", snapshot.ID.String()),
		zap.String("booking_reference", snapshot.BookingReference.String()),
	)
	return result, nil
}

// Reconcile refreshes the content of an already-live listing. It never
// changes status or published_at: a reconcile is a content update, not a
// republish event, and it does not repair failed snapshots (the publish
// sweep owns retries).
func (s *Service) Reconcile(ctx context.Context, snapshotID snowflake.ID) (marketdomain.ReconcileResult, error) {
	snapshot, err := s.repo.FindByID(ctx, snapshotID)
	if err != nil {
		return marketdomain.ReconcileResult{}, err
	}

	result := marketdomain.ReconcileResult{SnapshotID: snapshot.ID}
	if snapshot.Status != snapshotdomain.StatusPublished {
		result.Skipped = true
		s.metrics.IncReconcile("skipped")
		return result, nil
	}

	if err := s.remerge(ctx, snapshot); err != nil {
		return result, err
	}

	payload, err := marketdomain.BuildListingPayload(snapshot)
	if err != nil {
		return result, err
	}
	if err := s.listing.PublishListing(ctx, payload); err != nil {
		// No status change: the listing stays live with its previous
		// content and the next sweep tries again.
		s.metrics.IncReconcile("failed")
		result.Failure = err.Error()
		return result, nil
	}

	result.Refreshed = true
	s.metrics.IncReconcile("success")
	s.emitEvent(ctx, events.EventSnapshotReconciled, snapshot, "")
	return result, nil
}

// remerge re-runs the telemetry merge against the stored row. A booking
// that has since disappeared leaves the booking projection as-is.
func (s *Service) remerge(ctx context.Context, snapshot *snapshotdomain.Snapshot) error {
	booking, err := s.bookings.GetBooking(ctx, snapshot.BookingReference)
	if err == nil {
		snapshot.ApplyBooking(booking)
	} else {
		s.log.Warn("booking missing during reconcile, keeping projection",
			zap.String("booking_reference", snapshot.BookingReference.String()),
			zap.Error(err),
		)
	}

	reading, err := s.telemetry.GetLatest(ctx, snapshot.LocationCode)
	if err != nil {
		s.log.Warn("telemetry unavailable during reconcile",
			zap.String("location_code", snapshot.LocationCode),
			zap.Error(err),
		)
		reading = telemetrydomain.Reading{}
	}
	if err := snapshot.ApplyTelemetry(reading); err != nil {
		return err
	}

	snapshot.UpdatedAt = s.clock.Now()
	return s.repo.UpdateContent(ctx, snapshot)
}

func (s *Service) emitEvent(ctx context.Context, eventType string, snapshot *snapshotdomain.Snapshot, cause string) {
	if s.outbox == nil {
		return
	}
	payload := events.SnapshotPayload{
		SnapshotID:       snapshot.ID.String(),
		BookingReference: snapshot.BookingReference.String(),
		Status:           string(snapshot.Status),
		Cause:            cause,
	}
	dedupe := ""
	if eventType == events.EventSnapshotPublished {
		// Publishing is a once-per-snapshot transition; reconciles and
		// failures may repeat per snapshot and are not deduped.
		dedupe = eventType + ":" + snapshot.ID.String()
	}
	if err := s.outbox.Publish(ctx, events.Event{
		Type:      eventType,
		Payload:   payload.ToMap(),
		DedupeKey: dedupe,
	}); err != nil {
		s.log.Warn("failed to enqueue snapshot event",
			zap.String("event_type", eventType),
			zap.String("snapshot_id", snapshot.ID.String()),
			zap.Error(err),
		)
	}
}
