package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
)

var repoNow = time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)

func setupRepo(t *testing.T) snapshotdomain.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&snapshotdomain.Snapshot{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Provide(Params{DB: db, Log: zap.NewNop()})
}

func insertAged(t *testing.T, repo snapshotdomain.Repository, id int64, createdAt time.Time) {
	t.Helper()
	err := repo.Insert(context.Background(), &snapshotdomain.Snapshot{
		ID:               snowflake.ID(id),
		BookingReference: snowflake.ID(id + 1000),
		LocationCode:     "dock-4",
		CropType:         "oats",
		QuantityKg:       300,
		StartDate:        createdAt,
		EndDate:          createdAt.AddDate(0, 3, 0),
		BookingStatus:    "active",
		Status:           snapshotdomain.StatusReadyToPublish,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	})
	if err != nil {
		t.Fatalf("insert snapshot: %v", err)
	}
}

func TestArchiveExpiredReturnsArchivedRefs(t *testing.T) {
	repo := setupRepo(t)
	insertAged(t, repo, 1, repoNow.AddDate(0, 0, -120))
	insertAged(t, repo, 2, repoNow.AddDate(0, 0, -100))
	insertAged(t, repo, 3, repoNow.AddDate(0, 0, -10))

	cutoff := repoNow.AddDate(0, 0, -90)
	refs, err := repo.ArchiveExpired(context.Background(), cutoff, repoNow)
	if err != nil {
		t.Fatalf("archive expired: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected two archived refs, got %d", len(refs))
	}
	seen := make(map[snowflake.ID]snowflake.ID, len(refs))
	for _, ref := range refs {
		seen[ref.ID] = ref.BookingReference
	}
	if seen[1] != 1001 || seen[2] != 1002 {
		t.Fatalf("expected booking references carried on refs, got %v", seen)
	}

	archived, err := repo.FindByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if archived.Status != snapshotdomain.StatusArchived {
		t.Fatalf("expected archived status, got %s", archived.Status)
	}
	if archived.ArchivedAt == nil {
		t.Fatalf("expected archived_at set")
	}

	fresh, err := repo.FindByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.Status != snapshotdomain.StatusReadyToPublish {
		t.Fatalf("snapshot inside the horizon must stay untouched, got %s", fresh.Status)
	}
}

func TestArchiveExpiredSkipsAlreadyArchived(t *testing.T) {
	repo := setupRepo(t)
	insertAged(t, repo, 5, repoNow.AddDate(0, 0, -120))

	cutoff := repoNow.AddDate(0, 0, -90)
	if _, err := repo.ArchiveExpired(context.Background(), cutoff, repoNow); err != nil {
		t.Fatalf("first archive: %v", err)
	}
	refs, err := repo.ArchiveExpired(context.Background(), cutoff, repoNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("second archive: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("already archived rows must not be re-archived, got %d refs", len(refs))
	}
}

func TestDeleteExpiredRemovesPastHorizon(t *testing.T) {
	repo := setupRepo(t)
	insertAged(t, repo, 7, repoNow.AddDate(0, 0, -120))
	insertAged(t, repo, 8, repoNow.AddDate(0, 0, -5))

	affected, err := repo.DeleteExpired(context.Background(), repoNow.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected one deleted row, got %d", affected)
	}
	if _, err := repo.FindByID(context.Background(), 8); err != nil {
		t.Fatalf("snapshot inside the horizon must survive: %v", err)
	}
}
