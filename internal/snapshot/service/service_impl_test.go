package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	bookingdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/clock"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/events"
	marketdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market/domain"
	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
	snapshotrepo "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/repository"
	telemetrydomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/domain"
)

func setupSnapshotTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&snapshotdomain.Snapshot{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeBookingStore struct {
	bookings map[snowflake.ID]*bookingdomain.Booking
}

func (f *fakeBookingStore) GetBooking(_ context.Context, id snowflake.ID) (*bookingdomain.Booking, error) {
	booking, ok := f.bookings[id]
	if !ok {
		return nil, bookingdomain.ErrNotFound
	}
	copied := *booking
	return &copied, nil
}

type fakeTelemetrySource struct {
	reading telemetrydomain.Reading
	err     error
}

func (f *fakeTelemetrySource) GetLatest(context.Context, string) (telemetrydomain.Reading, error) {
	if f.err != nil {
		return telemetrydomain.Reading{}, f.err
	}
	return f.reading, nil
}

type fakePublisher struct {
	publishCalls int
	result       marketdomain.PublishResult
	err          error
}

func (f *fakePublisher) Publish(_ context.Context, id snowflake.ID) (marketdomain.PublishResult, error) {
	f.publishCalls++
	result := f.result
	result.SnapshotID = id
	return result, f.err
}

func (f *fakePublisher) Reconcile(_ context.Context, id snowflake.ID) (marketdomain.ReconcileResult, error) {
	return marketdomain.ReconcileResult{SnapshotID: id}, nil
}

func newTestService(t *testing.T, db *gorm.DB, bookings *fakeBookingStore, telemetry *fakeTelemetrySource, publisher *fakePublisher) (*Service, snapshotdomain.Repository) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	repo := snapshotrepo.Provide(snapshotrepo.Params{DB: db, Log: zap.NewNop()})
	svc := &Service{
		log:       zap.NewNop(),
		genID:     node,
		clock:     clock.Fixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		bookings:  bookings,
		telemetry: telemetry,
		repo:      repo,
		publisher: publisher,
	}
	return svc, repo
}

func testBooking(id int64) *bookingdomain.Booking {
	return &bookingdomain.Booking{
		ID:           snowflake.ID(id),
		LocationCode: "warehouse-7",
		CropType:     "maize",
		QuantityKg:   4200,
		StartDate:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:       bookingdomain.BookingStatusActive,
		VendorName:   "Acme Grain",
		CreatedAt:    time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC),
	}
}

func testReading() telemetrydomain.Reading {
	last := time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC)
	return telemetrydomain.Reading{
		Sensors: &telemetrydomain.SensorSummary{
			TemperatureC: 15.5,
			HumidityPct:  60,
			MoisturePct:  13,
			SampleCount:  4,
			LastReading:  &last,
		},
	}
}

func TestUpsertEmitsCreatedEventOnce(t *testing.T) {
	db := setupSnapshotTestDB(t)
	if err := db.AutoMigrate(&events.MarketEvent{}); err != nil {
		t.Fatalf("migrate events: %v", err)
	}
	booking := testBooking(150)
	svc, _ := newTestService(t, db,
		&fakeBookingStore{bookings: map[snowflake.ID]*bookingdomain.Booking{booking.ID: booking}},
		&fakeTelemetrySource{reading: testReading()},
		&fakePublisher{},
	)
	svc.outbox = events.NewOutbox(db, svc.genID, svc.clock)

	if _, err := svc.Upsert(context.Background(), booking.ID, false); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	// A refresh of the same booking is not a second creation.
	if _, err := svc.Upsert(context.Background(), booking.ID, false); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var count int64
	if err := db.Model(&events.MarketEvent{}).
		Where("event_type = ?", events.EventSnapshotCreated).
		Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single created event, got %d", count)
	}
}

func TestUpsertCreatesSnapshot(t *testing.T) {
	db := setupSnapshotTestDB(t)
	booking := testBooking(100)
	svc, repo := newTestService(t, db,
		&fakeBookingStore{bookings: map[snowflake.ID]*bookingdomain.Booking{booking.ID: booking}},
		&fakeTelemetrySource{reading: testReading()},
		&fakePublisher{},
	)

	snapshot, err := svc.Upsert(context.Background(), booking.ID, false)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if snapshot.Status != snapshotdomain.StatusReadyToPublish {
		t.Fatalf("expected ready_to_publish, got %s", snapshot.Status)
	}
	if snapshot.BookingReference != booking.ID {
		t.Fatalf("expected booking reference %d, got %d", booking.ID, snapshot.BookingReference)
	}
	if snapshot.QuantityKg != booking.QuantityKg {
		t.Fatalf("expected quantity %v, got %v", booking.QuantityKg, snapshot.QuantityKg)
	}
	if len(snapshot.SensorSummary) == 0 {
		t.Fatalf("expected sensor summary to be set")
	}

	stored, err := repo.FindByBookingRef(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("find stored: %v", err)
	}
	if stored.ID != snapshot.ID {
		t.Fatalf("expected stored snapshot %d, got %d", snapshot.ID, stored.ID)
	}
}

func TestUpsertRefreshesExisting(t *testing.T) {
	db := setupSnapshotTestDB(t)
	booking := testBooking(101)
	store := &fakeBookingStore{bookings: map[snowflake.ID]*bookingdomain.Booking{booking.ID: booking}}
	svc, repo := newTestService(t, db, store, &fakeTelemetrySource{reading: testReading()}, &fakePublisher{})

	first, err := svc.Upsert(context.Background(), booking.ID, false)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	booking.QuantityKg = 3000
	second, err := svc.Upsert(context.Background(), booking.ID, false)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same snapshot row, got %d and %d", first.ID, second.ID)
	}

	stored, err := repo.FindByBookingRef(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("find stored: %v", err)
	}
	if stored.QuantityKg != 3000 {
		t.Fatalf("expected refreshed quantity 3000, got %v", stored.QuantityKg)
	}

	var count int64
	if err := db.Model(&snapshotdomain.Snapshot{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one snapshot row, got %d", count)
	}
}

func TestUpsertBookingMissing(t *testing.T) {
	db := setupSnapshotTestDB(t)
	svc, _ := newTestService(t, db,
		&fakeBookingStore{bookings: map[snowflake.ID]*bookingdomain.Booking{}},
		&fakeTelemetrySource{},
		&fakePublisher{},
	)

	_, err := svc.Upsert(context.Background(), 999, false)
	if !errors.Is(err, bookingdomain.ErrNotFound) {
		t.Fatalf("expected booking not found, got %v", err)
	}
}

func TestUpsertToleratesTelemetryOutage(t *testing.T) {
	db := setupSnapshotTestDB(t)
	booking := testBooking(102)
	svc, _ := newTestService(t, db,
		&fakeBookingStore{bookings: map[snowflake.ID]*bookingdomain.Booking{booking.ID: booking}},
		&fakeTelemetrySource{err: errors.New("telemetry down")},
		&fakePublisher{},
	)

	snapshot, err := svc.Upsert(context.Background(), booking.ID, false)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(snapshot.SensorSummary) != 0 {
		t.Fatalf("expected no sensor summary, got %s", snapshot.SensorSummary)
	}
	if snapshot.Status != snapshotdomain.StatusReadyToPublish {
		t.Fatalf("expected ready_to_publish, got %s", snapshot.Status)
	}
}

func TestUpsertKeepsPublishedStatus(t *testing.T) {
	db := setupSnapshotTestDB(t)
	booking := testBooking(103)
	store := &fakeBookingStore{bookings: map[snowflake.ID]*bookingdomain.Booking{booking.ID: booking}}
	svc, repo := newTestService(t, db, store, &fakeTelemetrySource{reading: testReading()}, &fakePublisher{})

	snapshot, err := svc.Upsert(context.Background(), booking.ID, false)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	publishedAt := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	updated, err := repo.MarkPublished(context.Background(), snapshot.ID, publishedAt, nil)
	if err != nil || !updated {
		t.Fatalf("mark published: updated=%v err=%v", updated, err)
	}

	booking.QuantityKg = 9999
	if _, err := svc.Upsert(context.Background(), booking.ID, false); err != nil {
		t.Fatalf("refresh upsert: %v", err)
	}

	stored, err := repo.FindByBookingRef(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("find stored: %v", err)
	}
	if stored.Status != snapshotdomain.StatusPublished {
		t.Fatalf("refresh must not change status, got %s", stored.Status)
	}
	if stored.QuantityKg != 9999 {
		t.Fatalf("expected refreshed quantity, got %v", stored.QuantityKg)
	}
	if stored.PublishedAt == nil || !stored.PublishedAt.Equal(publishedAt) {
		t.Fatalf("published_at must survive refresh, got %v", stored.PublishedAt)
	}
}

// conflictingRepo simulates losing an insert race: the first lookup misses
// so the service takes the create path, and the insert then collides with
// a row another writer created in between.
type conflictingRepo struct {
	snapshotdomain.Repository
	missedOnce bool
}

func (r *conflictingRepo) FindByBookingRef(ctx context.Context, ref snowflake.ID) (*snapshotdomain.Snapshot, error) {
	if !r.missedOnce {
		r.missedOnce = true
		return nil, snapshotdomain.ErrNotFound
	}
	return r.Repository.FindByBookingRef(ctx, ref)
}

func TestUpsertInsertRaceFallsBackToUpdate(t *testing.T) {
	db := setupSnapshotTestDB(t)
	booking := testBooking(104)
	store := &fakeBookingStore{bookings: map[snowflake.ID]*bookingdomain.Booking{booking.ID: booking}}
	svc, repo := newTestService(t, db, store, &fakeTelemetrySource{reading: testReading()}, &fakePublisher{})

	// The competing writer's row is already in place.
	winner := &snapshotdomain.Snapshot{
		ID:            snowflake.ID(555),
		Status:        snapshotdomain.StatusReadyToPublish,
		BookingStatus: string(booking.Status),
	}
	winner.ApplyBooking(booking)
	if err := repo.Insert(context.Background(), winner); err != nil {
		t.Fatalf("seed winner row: %v", err)
	}

	svc.repo = &conflictingRepo{Repository: repo}
	booking.QuantityKg = 5100

	snapshot, err := svc.Upsert(context.Background(), booking.ID, false)
	if err != nil {
		t.Fatalf("upsert after race: %v", err)
	}
	if snapshot.ID != winner.ID {
		t.Fatalf("expected race to converge on row %d, got %d", winner.ID, snapshot.ID)
	}

	var count int64
	if err := db.Model(&snapshotdomain.Snapshot{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one snapshot row, got %d", count)
	}

	stored, err := repo.FindByBookingRef(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("find stored: %v", err)
	}
	if stored.QuantityKg != 5100 {
		t.Fatalf("expected loser's content applied, got %v", stored.QuantityKg)
	}
}

func TestUpsertInlinePublishFailureDoesNotFailUpsert(t *testing.T) {
	db := setupSnapshotTestDB(t)
	booking := testBooking(105)
	publisher := &fakePublisher{result: marketdomain.PublishResult{
		Status:  snapshotdomain.StatusFailed,
		Failure: "listing store down",
	}}
	svc, _ := newTestService(t, db,
		&fakeBookingStore{bookings: map[snowflake.ID]*bookingdomain.Booking{booking.ID: booking}},
		&fakeTelemetrySource{reading: testReading()},
		publisher,
	)

	snapshot, err := svc.Upsert(context.Background(), booking.ID, true)
	if err != nil {
		t.Fatalf("upsert with inline publish: %v", err)
	}
	if publisher.publishCalls != 1 {
		t.Fatalf("expected one publish attempt, got %d", publisher.publishCalls)
	}
	if snapshot.Status != snapshotdomain.StatusFailed {
		t.Fatalf("expected failed status on returned snapshot, got %s", snapshot.Status)
	}
}

func TestUpsertWithoutPublishNeverCallsPublisher(t *testing.T) {
	db := setupSnapshotTestDB(t)
	booking := testBooking(106)
	publisher := &fakePublisher{}
	svc, _ := newTestService(t, db,
		&fakeBookingStore{bookings: map[snowflake.ID]*bookingdomain.Booking{booking.ID: booking}},
		&fakeTelemetrySource{reading: testReading()},
		publisher,
	)

	if _, err := svc.Upsert(context.Background(), booking.ID, false); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if publisher.publishCalls != 0 {
		t.Fatalf("expected no publish attempts, got %d", publisher.publishCalls)
	}
}
