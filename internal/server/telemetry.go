package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	telemetrydomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/domain"
)

type sensorReadingRequest struct {
	LocationCode string     `json:"location_code"`
	TemperatureC float64    `json:"temperature_c"`
	HumidityPct  float64    `json:"humidity_pct"`
	MoisturePct  float64    `json:"moisture_pct"`
	RecordedAt   *time.Time `json:"recorded_at"`
}

func (s *Server) RecordSensorReading(c *gin.Context) {
	var req sensorReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.LocationCode = strings.TrimSpace(req.LocationCode)
	if req.LocationCode == "" {
		AbortWithError(c, newValidationError("location_code", "required", "location_code is required"))
		return
	}
	if req.HumidityPct < 0 || req.HumidityPct > 100 {
		AbortWithError(c, newValidationError("humidity_pct", "invalid_sensor_reading", "humidity_pct must be within 0..100"))
		return
	}
	if req.MoisturePct < 0 || req.MoisturePct > 100 {
		AbortWithError(c, newValidationError("moisture_pct", "invalid_sensor_reading", "moisture_pct must be within 0..100"))
		return
	}

	recordedAt := s.clock.Now()
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.UTC()
	}

	reading := &telemetrydomain.SensorReading{
		ID:           s.node.Generate(),
		LocationCode: req.LocationCode,
		TemperatureC: req.TemperatureC,
		HumidityPct:  req.HumidityPct,
		MoisturePct:  req.MoisturePct,
		RecordedAt:   recordedAt,
	}
	if err := s.telemetry.RecordSensorReading(c.Request.Context(), reading); err != nil {
		AbortWithError(c, err)
		return
	}

	s.syncLocationSnapshots(c, req.LocationCode)
	c.JSON(http.StatusOK, gin.H{"data": reading})
}

type pestEventRequest struct {
	LocationCode string     `json:"location_code"`
	PestType     string     `json:"pest_type"`
	Severity     string     `json:"severity"`
	DetectedAt   *time.Time `json:"detected_at"`
}

func (s *Server) RecordPestEvent(c *gin.Context) {
	var req pestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.LocationCode = strings.TrimSpace(req.LocationCode)
	req.PestType = strings.TrimSpace(req.PestType)
	if req.LocationCode == "" {
		AbortWithError(c, newValidationError("location_code", "required", "location_code is required"))
		return
	}
	if req.PestType == "" {
		AbortWithError(c, newValidationError("pest_type", "required", "pest_type is required"))
		return
	}

	detectedAt := s.clock.Now()
	if req.DetectedAt != nil {
		detectedAt = req.DetectedAt.UTC()
	}

	event := &telemetrydomain.PestEvent{
		ID:           s.node.Generate(),
		LocationCode: req.LocationCode,
		PestType:     req.PestType,
		Severity:     strings.TrimSpace(req.Severity),
		DetectedAt:   detectedAt,
	}
	if err := s.telemetry.RecordPestEvent(c.Request.Context(), event); err != nil {
		AbortWithError(c, err)
		return
	}

	s.syncLocationSnapshots(c, req.LocationCode)
	c.JSON(http.StatusOK, gin.H{"data": event})
}

// syncLocationSnapshots refreshes snapshots for every open booking at a
// location after new telemetry arrives. The ingest already succeeded, so
// sync failures are logged, not surfaced.
func (s *Server) syncLocationSnapshots(c *gin.Context, locationCode string) {
	ctx := c.Request.Context()
	bookings, err := s.bookings.ListByLocation(ctx, locationCode, 0)
	if err != nil {
		s.log.Warn("could not list bookings for telemetry sync",
			zap.String("location_code", locationCode),
			zap.Error(err),
		)
		return
	}
	for _, booking := range bookings {
		if _, err := s.snapshots.Upsert(ctx, booking.ID, false); err != nil {
			s.log.Warn("snapshot sync after telemetry failed",
				zap.String("booking_id", booking.ID.String()),
				zap.Error(err),
			)
		}
	}
}
