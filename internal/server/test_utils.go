package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup removes every booking, snapshot and telemetry row whose
// location code starts with the given prefix. Disabled in production.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	ctx := c.Request.Context()
	bookingIDs, err := s.loadBookingIDsByPrefix(ctx, prefix)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.deleteBookingData(ctx, bookingIDs); err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.deleteTelemetryData(ctx, prefix); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) loadBookingIDsByPrefix(ctx context.Context, prefix string) ([]int64, error) {
	like := strings.TrimSpace(prefix) + "%"
	var bookingIDs []int64
	if err := s.db.WithContext(ctx).
		Table("bookings").
		Select("id").
		Where("location_code LIKE ?", like).
		Scan(&bookingIDs).Error; err != nil {
		return nil, err
	}
	return bookingIDs, nil
}

func (s *Server) deleteBookingData(ctx context.Context, bookingIDs []int64) error {
	if len(bookingIDs) == 0 {
		return nil
	}
	queries := []string{
		`DELETE FROM market_inventory_snapshots WHERE booking_reference IN ?`,
		`DELETE FROM bookings WHERE id IN ?`,
	}
	for _, query := range queries {
		if err := s.db.WithContext(ctx).Exec(query, bookingIDs).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) deleteTelemetryData(ctx context.Context, prefix string) error {
	like := strings.TrimSpace(prefix) + "%"
	queries := []string{
		`DELETE FROM sensor_readings WHERE location_code LIKE ?`,
		`DELETE FROM pest_events WHERE location_code LIKE ?`,
	}
	for _, query := range queries {
		if err := s.db.WithContext(ctx).Exec(query, like).Error; err != nil {
			return err
		}
	}
	return nil
}
