package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/clock"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/events"
	marketdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market/domain"
	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
)

var sweepNow = time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)

type fakeSnapshotRepo struct {
	byStatus map[snapshotdomain.SnapshotStatus][]snapshotdomain.Snapshot
	listErr  error

	deleteCutoff  *time.Time
	archiveCutoff *time.Time
	affected      int64
	archiveRefs   []snapshotdomain.ArchivedRef
}

func (f *fakeSnapshotRepo) FindByID(context.Context, snowflake.ID) (*snapshotdomain.Snapshot, error) {
	return nil, snapshotdomain.ErrNotFound
}

func (f *fakeSnapshotRepo) FindByBookingRef(context.Context, snowflake.ID) (*snapshotdomain.Snapshot, error) {
	return nil, snapshotdomain.ErrNotFound
}

func (f *fakeSnapshotRepo) Insert(context.Context, *snapshotdomain.Snapshot) error { return nil }

func (f *fakeSnapshotRepo) UpdateContent(context.Context, *snapshotdomain.Snapshot) error {
	return nil
}

func (f *fakeSnapshotRepo) MarkPublished(context.Context, snowflake.ID, time.Time, []snapshotdomain.SnapshotStatus) (bool, error) {
	return true, nil
}

func (f *fakeSnapshotRepo) MarkFailed(context.Context, snowflake.ID, string, time.Time) error {
	return nil
}

func (f *fakeSnapshotRepo) ListByStatus(_ context.Context, status snapshotdomain.SnapshotStatus, _ int) ([]snapshotdomain.Snapshot, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byStatus[status], nil
}

func (f *fakeSnapshotRepo) StatusCounts(context.Context) (map[snapshotdomain.SnapshotStatus]int64, error) {
	counts := make(map[snapshotdomain.SnapshotStatus]int64)
	for status, snapshots := range f.byStatus {
		counts[status] = int64(len(snapshots))
	}
	return counts, nil
}

func (f *fakeSnapshotRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.deleteCutoff = &before
	return f.affected, nil
}

func (f *fakeSnapshotRepo) ArchiveExpired(_ context.Context, before time.Time, _ time.Time) ([]snapshotdomain.ArchivedRef, error) {
	f.archiveCutoff = &before
	return f.archiveRefs, nil
}

type fakeSweepPublisher struct {
	failOn    map[snowflake.ID]string
	publishN  int
	reconN    int
	callsByID map[snowflake.ID]int
}

func (f *fakeSweepPublisher) Publish(_ context.Context, id snowflake.ID) (marketdomain.PublishResult, error) {
	f.publishN++
	if f.callsByID == nil {
		f.callsByID = make(map[snowflake.ID]int)
	}
	f.callsByID[id]++
	if cause, ok := f.failOn[id]; ok {
		return marketdomain.PublishResult{
			SnapshotID: id,
			Status:     snapshotdomain.StatusFailed,
			Failure:    cause,
		}, nil
	}
	return marketdomain.PublishResult{
		SnapshotID: id,
		Status:     snapshotdomain.StatusPublished,
	}, nil
}

func (f *fakeSweepPublisher) Reconcile(_ context.Context, id snowflake.ID) (marketdomain.ReconcileResult, error) {
	f.reconN++
	if cause, ok := f.failOn[id]; ok {
		return marketdomain.ReconcileResult{SnapshotID: id, Failure: cause}, nil
	}
	return marketdomain.ReconcileResult{SnapshotID: id, Refreshed: true}, nil
}

func newTestScheduler(repo snapshotdomain.Repository, publisher marketdomain.Service) *Scheduler {
	return &Scheduler{
		log:       zap.NewNop(),
		clock:     clock.Fixed(sweepNow),
		cfg:       DefaultConfig().withDefaults(),
		repo:      repo,
		publisher: publisher,
	}
}

func snapshotsWithIDs(ids ...int64) []snapshotdomain.Snapshot {
	out := make([]snapshotdomain.Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, snapshotdomain.Snapshot{ID: snowflake.ID(id)})
	}
	return out
}

func TestPublishSweepIsolatesFailures(t *testing.T) {
	repo := &fakeSnapshotRepo{byStatus: map[snapshotdomain.SnapshotStatus][]snapshotdomain.Snapshot{
		snapshotdomain.StatusReadyToPublish: snapshotsWithIDs(1, 2, 3),
	}}
	publisher := &fakeSweepPublisher{failOn: map[snowflake.ID]string{2: "boom"}}
	s := newTestScheduler(repo, publisher)

	result, err := s.RunPublishSweep(context.Background())
	if err != nil {
		t.Fatalf("publish sweep: %v", err)
	}
	if result.Attempted != 3 || result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if publisher.publishN != 3 {
		t.Fatalf("one failure must not stop the sweep, attempted %d", publisher.publishN)
	}
}

func TestPublishSweepRetriesFailedSnapshots(t *testing.T) {
	repo := &fakeSnapshotRepo{byStatus: map[snapshotdomain.SnapshotStatus][]snapshotdomain.Snapshot{
		snapshotdomain.StatusReadyToPublish: snapshotsWithIDs(10),
		snapshotdomain.StatusFailed:         snapshotsWithIDs(11, 12),
	}}
	publisher := &fakeSweepPublisher{}
	s := newTestScheduler(repo, publisher)

	result, err := s.RunPublishSweep(context.Background())
	if err != nil {
		t.Fatalf("publish sweep: %v", err)
	}
	if result.Attempted != 3 {
		t.Fatalf("expected failed snapshots in the sweep, attempted %d", result.Attempted)
	}
	if result.Succeeded != 3 {
		t.Fatalf("expected all retries to succeed, got %d", result.Succeeded)
	}
}

// liveStatusRepo reflects publish failures back into the failed listing
// the way the real store does, so a sweep that re-listed failed rows
// mid-tick would see the rows it just failed.
type liveStatusRepo struct {
	*fakeSnapshotRepo
	publisher *fakeSweepPublisher
}

func (r *liveStatusRepo) ListByStatus(ctx context.Context, status snapshotdomain.SnapshotStatus, limit int) ([]snapshotdomain.Snapshot, error) {
	if status == snapshotdomain.StatusFailed {
		merged := append([]snapshotdomain.Snapshot{}, r.fakeSnapshotRepo.byStatus[status]...)
		for id, cause := range r.publisher.failOn {
			if r.publisher.callsByID[id] > 0 && cause != "" {
				merged = append(merged, snapshotdomain.Snapshot{ID: id})
			}
		}
		return merged, nil
	}
	return r.fakeSnapshotRepo.ListByStatus(ctx, status, limit)
}

func TestPublishSweepDefersFailureRetryToNextTick(t *testing.T) {
	base := &fakeSnapshotRepo{byStatus: map[snapshotdomain.SnapshotStatus][]snapshotdomain.Snapshot{
		snapshotdomain.StatusReadyToPublish: snapshotsWithIDs(30),
	}}
	publisher := &fakeSweepPublisher{failOn: map[snowflake.ID]string{30: "listing store down"}}
	repo := &liveStatusRepo{fakeSnapshotRepo: base, publisher: publisher}
	s := newTestScheduler(repo, publisher)

	result, err := s.RunPublishSweep(context.Background())
	if err != nil {
		t.Fatalf("publish sweep: %v", err)
	}
	if result.Attempted != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if publisher.callsByID[30] != 1 {
		t.Fatalf("a snapshot failing mid-tick must wait for the next sweep, got %d calls", publisher.callsByID[30])
	}

	// The next tick picks the row up from the failed listing.
	base.byStatus[snapshotdomain.StatusReadyToPublish] = nil
	if _, err := s.RunPublishSweep(context.Background()); err != nil {
		t.Fatalf("second publish sweep: %v", err)
	}
	if publisher.callsByID[30] != 2 {
		t.Fatalf("expected the retry on the following sweep, got %d calls", publisher.callsByID[30])
	}
}

func TestPublishSweepListErrorSkipsTick(t *testing.T) {
	repo := &fakeSnapshotRepo{listErr: errors.New("store down")}
	publisher := &fakeSweepPublisher{}
	s := newTestScheduler(repo, publisher)

	result, err := s.RunPublishSweep(context.Background())
	if err == nil {
		t.Fatalf("expected list error to surface")
	}
	if result.Attempted != 0 || publisher.publishN != 0 {
		t.Fatalf("a failed listing must not publish anything: %+v", result)
	}
}

func TestReconcileSweepOnlyTouchesPublished(t *testing.T) {
	repo := &fakeSnapshotRepo{byStatus: map[snapshotdomain.SnapshotStatus][]snapshotdomain.Snapshot{
		snapshotdomain.StatusPublished: snapshotsWithIDs(20, 21),
		snapshotdomain.StatusFailed:    snapshotsWithIDs(22),
	}}
	publisher := &fakeSweepPublisher{failOn: map[snowflake.ID]string{21: "flaky"}}
	s := newTestScheduler(repo, publisher)

	result, err := s.RunReconcileSweep(context.Background())
	if err != nil {
		t.Fatalf("reconcile sweep: %v", err)
	}
	if result.Attempted != 2 {
		t.Fatalf("reconcile must only list published snapshots, attempted %d", result.Attempted)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRetentionSweepDeletesPastHorizon(t *testing.T) {
	repo := &fakeSnapshotRepo{affected: 7}
	s := newTestScheduler(repo, &fakeSweepPublisher{})
	s.cfg.RetentionHorizon = 48 * time.Hour
	s.cfg.ArchiveExpired = false

	result, err := s.RunRetentionSweep(context.Background())
	if err != nil {
		t.Fatalf("retention sweep: %v", err)
	}
	if result.Succeeded != 7 {
		t.Fatalf("expected 7 removals, got %d", result.Succeeded)
	}
	if repo.deleteCutoff == nil {
		t.Fatalf("expected delete path")
	}
	want := sweepNow.Add(-48 * time.Hour)
	if !repo.deleteCutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, repo.deleteCutoff)
	}
	if repo.archiveCutoff != nil {
		t.Fatalf("delete mode must not archive")
	}
}

func TestRetentionSweepArchivesWhenConfigured(t *testing.T) {
	repo := &fakeSnapshotRepo{archiveRefs: []snapshotdomain.ArchivedRef{
		{ID: 40, BookingReference: 400},
		{ID: 41, BookingReference: 401},
	}}
	s := newTestScheduler(repo, &fakeSweepPublisher{})
	s.cfg.ArchiveExpired = true

	result, err := s.RunRetentionSweep(context.Background())
	if err != nil {
		t.Fatalf("retention sweep: %v", err)
	}
	if result.Succeeded != 2 {
		t.Fatalf("expected 2 archived snapshots, got %d", result.Succeeded)
	}
	if repo.archiveCutoff == nil {
		t.Fatalf("expected archive path")
	}
	if repo.deleteCutoff != nil {
		t.Fatalf("archive mode must not delete")
	}
}

func TestRetentionSweepEmitsArchivedEvents(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&events.MarketEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	repo := &fakeSnapshotRepo{archiveRefs: []snapshotdomain.ArchivedRef{
		{ID: 50, BookingReference: 500},
		{ID: 51, BookingReference: 501},
	}}
	s := newTestScheduler(repo, &fakeSweepPublisher{})
	s.cfg.ArchiveExpired = true
	s.outbox = events.NewOutbox(db, node, clock.Fixed(sweepNow))

	if _, err := s.RunRetentionSweep(context.Background()); err != nil {
		t.Fatalf("retention sweep: %v", err)
	}

	var count int64
	if err := db.Model(&events.MarketEvent{}).
		Where("event_type = ?", events.EventSnapshotArchived).
		Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected one archive event per snapshot, got %d", count)
	}

	// Re-archiving the same rows must not produce duplicate events.
	if _, err := s.RunRetentionSweep(context.Background()); err != nil {
		t.Fatalf("second retention sweep: %v", err)
	}
	if err := db.Model(&events.MarketEvent{}).
		Where("event_type = ?", events.EventSnapshotArchived).
		Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 2 {
		t.Fatalf("archive events must dedupe by snapshot, got %d", count)
	}
}

func TestGuardedSkipsOverlappingRun(t *testing.T) {
	s := newTestScheduler(&fakeSnapshotRepo{}, &fakeSweepPublisher{})

	var runs atomic.Int32
	var running atomic.Bool
	tick := s.guarded(context.Background(), "publish", &running, func(context.Context) {
		runs.Add(1)
	})

	running.Store(true) // a previous run is still in flight
	tick()
	if runs.Load() != 0 {
		t.Fatalf("expected overlapping tick to be skipped")
	}

	running.Store(false)
	tick()
	if runs.Load() != 1 {
		t.Fatalf("expected tick to run once the previous finished, got %d", runs.Load())
	}
}
