// Package domain contains the market inventory snapshot model and its
// persistence contract.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SnapshotStatus is the publication lifecycle of a snapshot. The set is
// closed; every transition site switches over all four values.
type SnapshotStatus string

const (
	StatusReadyToPublish SnapshotStatus = "ready_to_publish"
	StatusPublished      SnapshotStatus = "published"
	StatusFailed         SnapshotStatus = "failed"
	StatusArchived       SnapshotStatus = "archived"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s SnapshotStatus) Valid() bool {
	switch s {
	case StatusReadyToPublish, StatusPublished, StatusFailed, StatusArchived:
		return true
	}
	return false
}

// Terminal reports whether the status ends the snapshot lifecycle.
func (s SnapshotStatus) Terminal() bool {
	return s == StatusArchived
}

// Snapshot is the denormalized, publish-ready projection of one storage
// booking plus the freshest telemetry for its location. At most one row
// exists per booking, enforced by the unique index on booking_reference.
type Snapshot struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	BookingReference snowflake.ID `gorm:"not null;uniqueIndex:ux_snapshot_booking_reference" json:"booking_reference"`

	// Booking projection
	LocationCode  string            `gorm:"type:text;not null" json:"location_code"`
	CropType      string            `gorm:"type:text;not null" json:"crop_type"`
	QuantityKg    float64           `gorm:"not null" json:"quantity_kg"`
	StartDate     time.Time         `gorm:"not null" json:"start_date"`
	EndDate       time.Time         `gorm:"not null" json:"end_date"`
	BookingStatus string            `gorm:"type:text;not null" json:"booking_status"`
	VendorName    string            `gorm:"type:text" json:"vendor_name"`
	CertRefs      datatypes.JSONMap `gorm:"type:jsonb" json:"cert_refs"`

	// Telemetry projection
	SensorSummary datatypes.JSON `gorm:"type:jsonb" json:"sensor_summary"`
	PestEvents    datatypes.JSON `gorm:"type:jsonb" json:"pest_events"`

	Status      SnapshotStatus `gorm:"type:text;not null;default:'ready_to_publish'" json:"status"`
	LastError   *string        `gorm:"type:text" json:"-"`
	LastErrorAt *time.Time     `gorm:"" json:"-"`

	PublishedAt *time.Time `gorm:"" json:"published_at,omitempty"`
	ArchivedAt  *time.Time `gorm:"" json:"archived_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Snapshot) TableName() string { return "market_inventory_snapshots" }

var (
	ErrNotFound        = errors.New("snapshot_not_found")
	ErrConflict        = errors.New("snapshot_conflict")
	ErrInvalidSnapshot = errors.New("invalid_snapshot")
	ErrInvalidStatus   = errors.New("invalid_snapshot_status")
)
