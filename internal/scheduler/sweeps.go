package scheduler

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/events"
	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
)

// SweepResult aggregates per-item outcomes of one sweep run.
type SweepResult struct {
	Sweep     string `json:"sweep"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// RunPublishSweep publishes every snapshot that is ready, then retries
// ones that failed on an earlier sweep. Both lists are taken before any
// publish attempt: a snapshot that fails within this tick lands in failed
// and is retried on the next sweep, never re-attempted by the same one.
// A single snapshot's failure never aborts the rest of the sweep.
func (s *Scheduler) RunPublishSweep(ctx context.Context) (SweepResult, error) {
	result := SweepResult{Sweep: sweepPublish}

	var candidates []snapshotdomain.Snapshot
	seen := make(map[snowflake.ID]struct{})
	for _, status := range []snapshotdomain.SnapshotStatus{
		snapshotdomain.StatusReadyToPublish,
		snapshotdomain.StatusFailed,
	} {
		snapshots, err := s.repo.ListByStatus(ctx, status, s.cfg.BatchSize)
		if err != nil {
			// Store-level failure: skip this tick, the next one retries.
			s.log.Error("publish sweep could not list snapshots",
				zap.String("status", string(status)),
				zap.Error(err),
			)
			return result, err
		}
		for _, snapshot := range snapshots {
			if _, dup := seen[snapshot.ID]; dup {
				continue
			}
			seen[snapshot.ID] = struct{}{}
			candidates = append(candidates, snapshot)
		}
	}

	for _, snapshot := range candidates {
		result.Attempted++
		publishResult, err := s.publisher.Publish(ctx, snapshot.ID)
		if err != nil || publishResult.Failed() {
			result.Failed++
			cause := publishResult.Failure
			if err != nil {
				cause = err.Error()
			}
			s.log.Warn("publish attempt failed",
				zap.String("snapshot_id", snapshot.ID.String()),
				zap.String("cause", cause),
			)
			continue
		}
		result.Succeeded++
	}

	s.updateBacklog(ctx)
	s.log.Info("publish sweep finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// RunReconcileSweep refreshes the content of every published listing.
func (s *Scheduler) RunReconcileSweep(ctx context.Context) (SweepResult, error) {
	result := SweepResult{Sweep: sweepReconcile}

	snapshots, err := s.repo.ListByStatus(ctx, snapshotdomain.StatusPublished, s.cfg.BatchSize)
	if err != nil {
		s.log.Error("reconcile sweep could not list snapshots", zap.Error(err))
		return result, err
	}

	for _, snapshot := range snapshots {
		result.Attempted++
		reconcileResult, err := s.publisher.Reconcile(ctx, snapshot.ID)
		if err != nil || reconcileResult.Failure != "" {
			result.Failed++
			cause := reconcileResult.Failure
			if err != nil {
				cause = err.Error()
			}
			s.log.Warn("reconcile attempt failed",
				zap.String("snapshot_id", snapshot.ID.String()),
				zap.String("cause", cause),
			)
			continue
		}
		result.Succeeded++
	}

	s.log.Info("reconcile sweep finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// RunRetentionSweep removes snapshots past the retention horizon. Age
// alone decides eligibility: a snapshot that never managed to publish
// still does not live forever.
func (s *Scheduler) RunRetentionSweep(ctx context.Context) (SweepResult, error) {
	result := SweepResult{Sweep: sweepRetention}
	cutoff := s.clock.Now().Add(-s.cfg.RetentionHorizon)

	var (
		affected int64
		err      error
		action   string
	)
	if s.cfg.ArchiveExpired {
		action = "archived"
		var refs []snapshotdomain.ArchivedRef
		refs, err = s.repo.ArchiveExpired(ctx, cutoff, s.clock.Now())
		affected = int64(len(refs))
		for _, ref := range refs {
			s.emitArchived(ctx, ref)
		}
	} else {
		action = "deleted"
		affected, err = s.repo.DeleteExpired(ctx, cutoff)
	}
	if err != nil {
		s.log.Error("retention sweep failed", zap.Error(err))
		return result, err
	}

	result.Attempted = int(affected)
	result.Succeeded = int(affected)
	s.metrics.AddRetention(action, affected)
	if affected > 0 {
		s.log.Info("retention sweep finished",
			zap.String("action", action),
			zap.Int64("snapshots", affected),
			zap.Time("cutoff", cutoff),
		)
	}
	return result, nil
}

// emitArchived records the archive transition in the outbox. Archiving is
// a once-per-snapshot transition, so the event is deduped by snapshot id.
func (s *Scheduler) emitArchived(ctx context.Context, ref snapshotdomain.ArchivedRef) {
	if s.outbox == nil {
		return
	}
	payload := events.SnapshotPayload{
		SnapshotID:       ref.ID.String(),
		BookingReference: ref.BookingReference.String(),
		Status:           string(snapshotdomain.StatusArchived),
	}
	err := s.outbox.Publish(ctx, events.Event{
		Type:      events.EventSnapshotArchived,
		Payload:   payload.ToMap(),
		DedupeKey: events.EventSnapshotArchived + ":" + ref.ID.String(),
	})
	if err != nil {
		s.log.Warn("failed to enqueue archive event",
			zap.String("snapshot_id", ref.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Scheduler) updateBacklog(ctx context.Context) {
	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		s.log.Warn("could not refresh backlog gauges", zap.Error(err))
		return
	}
	for _, status := range []snapshotdomain.SnapshotStatus{
		snapshotdomain.StatusReadyToPublish,
		snapshotdomain.StatusPublished,
		snapshotdomain.StatusFailed,
		snapshotdomain.StatusArchived,
	} {
		s.metrics.SetBacklog(string(status), int(counts[status]))
	}
}
