// Package seed bootstraps demo data for local development.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	bookingdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking/domain"
	telemetrydomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/domain"
)

const demoLocation = "demo-warehouse-01"

// EnsureDemoData seeds one demo booking with recent telemetry so a fresh
// install has something to sync and publish. Idempotent by location code.
func EnsureDemoData(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id node is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing bookingdomain.Booking
		err := tx.WithContext(ctx).
			Where("location_code = ?", demoLocation).
			First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		booking := bookingdomain.Booking{
			ID:           node.Generate(),
			LocationCode: demoLocation,
			CropType:     "wheat",
			QuantityKg:   12500,
			StartDate:    now.AddDate(0, 0, -7),
			EndDate:      now.AddDate(0, 3, 0),
			Status:       bookingdomain.BookingStatusActive,
			VendorName:   "Demo Grain Co",
			CertRefs:     datatypes.JSONMap{"organic": "CERT-DEMO-001"},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.WithContext(ctx).Create(&booking).Error; err != nil {
			return err
		}

		readings := []telemetrydomain.SensorReading{
			{
				ID:           node.Generate(),
				LocationCode: demoLocation,
				TemperatureC: 14.2,
				HumidityPct:  58,
				MoisturePct:  12.5,
				RecordedAt:   now.Add(-2 * time.Hour),
			},
			{
				ID:           node.Generate(),
				LocationCode: demoLocation,
				TemperatureC: 14.8,
				HumidityPct:  61,
				MoisturePct:  12.9,
				RecordedAt:   now.Add(-1 * time.Hour),
			},
		}
		if err := tx.WithContext(ctx).Create(&readings).Error; err != nil {
			return err
		}

		event := telemetrydomain.PestEvent{
			ID:           node.Generate(),
			LocationCode: demoLocation,
			PestType:     "grain weevil",
			Severity:     "low",
			DetectedAt:   now.Add(-36 * time.Hour),
		}
		return tx.WithContext(ctx).Create(&event).Error
	})
}
