package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Repository struct {
	db  *gorm.DB
	log *zap.Logger
}

func Provide(p Params) snapshotdomain.Repository {
	return &Repository{
		db:  p.DB,
		log: p.Log.Named("snapshot.repository"),
	}
}

func (r *Repository) FindByID(ctx context.Context, id snowflake.ID) (*snapshotdomain.Snapshot, error) {
	if id == 0 {
		return nil, snapshotdomain.ErrInvalidSnapshot
	}
	var snapshot snapshotdomain.Snapshot
	err := r.db.WithContext(ctx).First(&snapshot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, snapshotdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *Repository) FindByBookingRef(ctx context.Context, bookingRef snowflake.ID) (*snapshotdomain.Snapshot, error) {
	if bookingRef == 0 {
		return nil, snapshotdomain.ErrInvalidSnapshot
	}
	var snapshot snapshotdomain.Snapshot
	err := r.db.WithContext(ctx).First(&snapshot, "booking_reference = ?", bookingRef).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, snapshotdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *Repository) Insert(ctx context.Context, snapshot *snapshotdomain.Snapshot) error {
	if snapshot == nil || snapshot.ID == 0 || snapshot.BookingReference == 0 {
		return snapshotdomain.ErrInvalidSnapshot
	}
	err := r.db.WithContext(ctx).Create(snapshot).Error
	if isUniqueViolation(err) {
		return snapshotdomain.ErrConflict
	}
	return err
}

func (r *Repository) UpdateContent(ctx context.Context, snapshot *snapshotdomain.Snapshot) error {
	if snapshot == nil || snapshot.ID == 0 {
		return snapshotdomain.ErrInvalidSnapshot
	}
	result := r.db.WithContext(ctx).Model(&snapshotdomain.Snapshot{}).
		Where("id = ?", snapshot.ID).
		Updates(map[string]any{
			"location_code":  snapshot.LocationCode,
			"crop_type":      snapshot.CropType,
			"quantity_kg":    snapshot.QuantityKg,
			"start_date":     snapshot.StartDate,
			"end_date":       snapshot.EndDate,
			"booking_status": snapshot.BookingStatus,
			"vendor_name":    snapshot.VendorName,
			"cert_refs":      snapshot.CertRefs,
			"sensor_summary": snapshot.SensorSummary,
			"pest_events":    snapshot.PestEvents,
			"updated_at":     snapshot.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return snapshotdomain.ErrNotFound
	}
	return nil
}

func (r *Repository) MarkPublished(ctx context.Context, id snowflake.ID, at time.Time, from []snapshotdomain.SnapshotStatus) (bool, error) {
	if id == 0 {
		return false, snapshotdomain.ErrInvalidSnapshot
	}
	if len(from) == 0 {
		from = []snapshotdomain.SnapshotStatus{snapshotdomain.StatusReadyToPublish}
	}
	result := r.db.WithContext(ctx).Exec(
		`UPDATE market_inventory_snapshots
		 SET status = ?,
		     published_at = COALESCE(published_at, ?),
		     last_error = NULL,
		     last_error_at = NULL,
		     updated_at = ?
		 WHERE id = ? AND status IN ?`,
		snapshotdomain.StatusPublished,
		at,
		at,
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) MarkFailed(ctx context.Context, id snowflake.ID, cause string, at time.Time) error {
	if id == 0 {
		return snapshotdomain.ErrInvalidSnapshot
	}
	cause = strings.TrimSpace(cause)
	return r.db.WithContext(ctx).Exec(
		`UPDATE market_inventory_snapshots
		 SET status = ?, last_error = ?, last_error_at = ?, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		snapshotdomain.StatusFailed,
		cause,
		at,
		at,
		id,
		[]snapshotdomain.SnapshotStatus{
			snapshotdomain.StatusReadyToPublish,
			snapshotdomain.StatusFailed,
		},
	).Error
}

func (r *Repository) ListByStatus(ctx context.Context, status snapshotdomain.SnapshotStatus, limit int) ([]snapshotdomain.Snapshot, error) {
	if !status.Valid() {
		return nil, snapshotdomain.ErrInvalidStatus
	}
	if limit <= 0 {
		limit = 100
	}
	var snapshots []snapshotdomain.Snapshot
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *Repository) StatusCounts(ctx context.Context) (map[snapshotdomain.SnapshotStatus]int64, error) {
	var rows []struct {
		Status snapshotdomain.SnapshotStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT status, COUNT(1) AS total
		 FROM market_inventory_snapshots
		 GROUP BY status`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[snapshotdomain.SnapshotStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(
		`DELETE FROM market_inventory_snapshots WHERE created_at < ?`,
		before,
	)
	return result.RowsAffected, result.Error
}

func (r *Repository) ArchiveExpired(ctx context.Context, before time.Time, at time.Time) ([]snapshotdomain.ArchivedRef, error) {
	var refs []snapshotdomain.ArchivedRef
	err := r.db.WithContext(ctx).Raw(
		`UPDATE market_inventory_snapshots
		 SET status = ?, archived_at = COALESCE(archived_at, ?), updated_at = ?
		 WHERE created_at < ? AND status <> ?
		 RETURNING id, booking_reference`,
		snapshotdomain.StatusArchived,
		at,
		at,
		before,
		snapshotdomain.StatusArchived,
	).Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// isUniqueViolation classifies a write error as a unique-index race.
// Postgres reports 23505, the sqlite driver used in tests reports a
// plain-text constraint message, and gorm translates both when the
// dialector has error translation enabled.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
