// Package domain contains persistence models for storage bookings.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BookingStatus tracks the lifecycle of a storage booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether the status is one of the known booking states.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusActive,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Booking is a reservation of storage capacity for a crop lot.
type Booking struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	LocationCode string            `gorm:"type:text;not null;index" json:"location_code"`
	CropType     string            `gorm:"type:text;not null" json:"crop_type"`
	QuantityKg   float64           `gorm:"not null" json:"quantity_kg"`
	StartDate    time.Time         `gorm:"not null" json:"start_date"`
	EndDate      time.Time         `gorm:"not null" json:"end_date"`
	Status       BookingStatus     `gorm:"type:text;not null;default:'pending'" json:"status"`
	VendorName   string            `gorm:"type:text" json:"vendor_name"`
	CertRefs     datatypes.JSONMap `gorm:"type:jsonb" json:"cert_refs"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Booking) TableName() string { return "bookings" }

var (
	ErrNotFound        = errors.New("booking_not_found")
	ErrInvalidBooking  = errors.New("invalid_booking")
	ErrInvalidStatus   = errors.New("invalid_booking_status")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidWindow   = errors.New("invalid_booking_window")
)
