package repository

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/clock"
	telemetrydomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/domain"
)

// summaryWindow bounds how far back the sensor aggregate looks. Older
// readings are stale for a live listing and only skew the averages.
const summaryWindow = 24 * time.Hour

// pestWindow bounds how long a pest sighting stays on the snapshot.
const pestWindow = 7 * 24 * time.Hour

const maxPestSightings = 20

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Repository struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func Provide(p Params) telemetrydomain.Repository {
	return &Repository{
		db:    p.DB,
		log:   p.Log.Named("telemetry.repository"),
		clock: p.Clock,
	}
}

// GetLatest aggregates recent sensor readings and pest events for a
// location. Missing data yields an empty Reading.
func (r *Repository) GetLatest(ctx context.Context, locationCode string) (telemetrydomain.Reading, error) {
	locationCode = strings.TrimSpace(locationCode)
	if locationCode == "" {
		return telemetrydomain.Reading{}, nil
	}

	now := r.clock.Now()
	reading := telemetrydomain.Reading{}

	var row struct {
		AvgTemperature float64
		AvgHumidity    float64
		AvgMoisture    float64
		SampleCount    int
		LastReading    *time.Time
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT AVG(temperature_c) AS avg_temperature,
		        AVG(humidity_pct)  AS avg_humidity,
		        AVG(moisture_pct)  AS avg_moisture,
		        COUNT(1)           AS sample_count,
		        MAX(recorded_at)   AS last_reading
		 FROM sensor_readings
		 WHERE location_code = ? AND recorded_at >= ?`,
		locationCode,
		now.Add(-summaryWindow),
	).Scan(&row).Error
	if err != nil {
		return telemetrydomain.Reading{}, err
	}
	if row.SampleCount > 0 {
		reading.Sensors = &telemetrydomain.SensorSummary{
			TemperatureC: row.AvgTemperature,
			HumidityPct:  row.AvgHumidity,
			MoisturePct:  row.AvgMoisture,
			SampleCount:  row.SampleCount,
			LastReading:  row.LastReading,
		}
	}

	var events []telemetrydomain.PestEvent
	err = r.db.WithContext(ctx).
		Where("location_code = ? AND detected_at >= ?", locationCode, now.Add(-pestWindow)).
		Order("detected_at DESC").
		Limit(maxPestSightings).
		Find(&events).Error
	if err != nil {
		return telemetrydomain.Reading{}, err
	}
	for _, event := range events {
		reading.PestEvents = append(reading.PestEvents, telemetrydomain.PestSighting{
			PestType:   event.PestType,
			Severity:   event.Severity,
			DetectedAt: event.DetectedAt,
		})
	}

	return reading, nil
}

func (r *Repository) RecordSensorReading(ctx context.Context, reading *telemetrydomain.SensorReading) error {
	if reading == nil || reading.ID == 0 {
		return telemetrydomain.ErrInvalidReading
	}
	if strings.TrimSpace(reading.LocationCode) == "" {
		return telemetrydomain.ErrInvalidLocation
	}
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = r.clock.Now()
	}
	return r.db.WithContext(ctx).Create(reading).Error
}

func (r *Repository) RecordPestEvent(ctx context.Context, event *telemetrydomain.PestEvent) error {
	if event == nil || event.ID == 0 {
		return telemetrydomain.ErrInvalidReading
	}
	if strings.TrimSpace(event.LocationCode) == "" {
		return telemetrydomain.ErrInvalidLocation
	}
	if event.DetectedAt.IsZero() {
		event.DetectedAt = r.clock.Now()
	}
	return r.db.WithContext(ctx).Create(event).Error
}
