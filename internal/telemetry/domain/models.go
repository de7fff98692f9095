// Package domain contains models for IoT sensor and pest telemetry.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// SensorReading is one raw sample from a storage-location sensor bank.
type SensorReading struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	LocationCode string       `gorm:"type:text;not null;index" json:"location_code"`
	TemperatureC float64      `gorm:"not null" json:"temperature_c"`
	HumidityPct  float64      `gorm:"not null" json:"humidity_pct"`
	MoisturePct  float64      `gorm:"not null" json:"moisture_pct"`
	RecordedAt   time.Time    `gorm:"not null;index" json:"recorded_at"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (SensorReading) TableName() string { return "sensor_readings" }

// PestEvent is a pest detection reported for a storage location.
type PestEvent struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	LocationCode string       `gorm:"type:text;not null;index" json:"location_code"`
	PestType     string       `gorm:"type:text;not null" json:"pest_type"`
	Severity     string       `gorm:"type:text;not null" json:"severity"`
	DetectedAt   time.Time    `gorm:"not null;index" json:"detected_at"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (PestEvent) TableName() string { return "pest_events" }

// SensorSummary aggregates the latest readings for a location.
type SensorSummary struct {
	TemperatureC float64    `json:"temperature_c"`
	HumidityPct  float64    `json:"humidity_pct"`
	MoisturePct  float64    `json:"moisture_pct"`
	SampleCount  int        `json:"sample_count"`
	LastReading  *time.Time `json:"last_reading,omitempty"`
}

// PestSighting is the publish-facing shape of a pest event.
type PestSighting struct {
	PestType   string    `json:"pest_type"`
	Severity   string    `json:"severity"`
	DetectedAt time.Time `json:"detected_at"`
}

// Reading is the latest telemetry view for one storage location. Either
// part may be empty when no data has arrived yet.
type Reading struct {
	Sensors    *SensorSummary `json:"sensors,omitempty"`
	PestEvents []PestSighting `json:"pest_events,omitempty"`
}

// Empty reports whether the reading carries no data at all.
func (r Reading) Empty() bool {
	return r.Sensors == nil && len(r.PestEvents) == 0
}

var (
	ErrInvalidLocation = errors.New("invalid_location_code")
	ErrInvalidReading  = errors.New("invalid_sensor_reading")
)
