package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/cache"
)

const bookingCacheTTL = 5 * time.Second

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Repository struct {
	db    *gorm.DB
	log   *zap.Logger
	cache *cache.TTLCache[snowflake.ID, bookingdomain.Booking]
}

func Provide(p Params) bookingdomain.Repository {
	return &Repository{
		db:    p.DB,
		log:   p.Log.Named("booking.repository"),
		cache: cache.NewTTLCache[snowflake.ID, bookingdomain.Booking](),
	}
}

// GetBooking loads a booking by id, serving repeated lookups on the hot
// upsert path from a short-lived cache.
func (r *Repository) GetBooking(ctx context.Context, id snowflake.ID) (*bookingdomain.Booking, error) {
	if id == 0 {
		return nil, bookingdomain.ErrInvalidBooking
	}
	if cached, ok := r.cache.Get(id); ok {
		booking := cached
		return &booking, nil
	}

	var booking bookingdomain.Booking
	err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, bookingdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.cache.Set(id, booking, bookingCacheTTL)
	return &booking, nil
}

func (r *Repository) Create(ctx context.Context, booking *bookingdomain.Booking) error {
	if booking == nil || booking.ID == 0 {
		return bookingdomain.ErrInvalidBooking
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *Repository) Update(ctx context.Context, booking *bookingdomain.Booking) error {
	if booking == nil || booking.ID == 0 {
		return bookingdomain.ErrInvalidBooking
	}
	result := r.db.WithContext(ctx).Model(&bookingdomain.Booking{}).
		Where("id = ?", booking.ID).
		Updates(map[string]any{
			"location_code": booking.LocationCode,
			"crop_type":     booking.CropType,
			"quantity_kg":   booking.QuantityKg,
			"start_date":    booking.StartDate,
			"end_date":      booking.EndDate,
			"status":        booking.Status,
			"vendor_name":   booking.VendorName,
			"cert_refs":     booking.CertRefs,
			"updated_at":    booking.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bookingdomain.ErrNotFound
	}
	r.cache.Delete(booking.ID)
	return nil
}

// ListByLocation returns open bookings stored at a location. Completed
// and cancelled bookings no longer react to telemetry.
func (r *Repository) ListByLocation(ctx context.Context, locationCode string, limit int) ([]bookingdomain.Booking, error) {
	if locationCode == "" {
		return nil, bookingdomain.ErrInvalidBooking
	}
	if limit <= 0 {
		limit = 50
	}
	var bookings []bookingdomain.Booking
	err := r.db.WithContext(ctx).Model(&bookingdomain.Booking{}).
		Where("location_code = ?", locationCode).
		Where("status IN ?", []bookingdomain.BookingStatus{
			bookingdomain.BookingStatusPending,
			bookingdomain.BookingStatusConfirmed,
			bookingdomain.BookingStatusActive,
		}).
		Order("created_at DESC").
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *Repository) List(ctx context.Context, status bookingdomain.BookingStatus, limit int) ([]bookingdomain.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&bookingdomain.Booking{}).Order("created_at DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var bookings []bookingdomain.Booking
	if err := query.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}
