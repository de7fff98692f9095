package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	bookingdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking/domain"
)

type createBookingRequest struct {
	LocationCode string            `json:"location_code"`
	CropType     string            `json:"crop_type"`
	QuantityKg   float64           `json:"quantity_kg"`
	StartDate    time.Time         `json:"start_date"`
	EndDate      time.Time         `json:"end_date"`
	Status       string            `json:"status"`
	VendorName   string            `json:"vendor_name"`
	CertRefs     map[string]string `json:"cert_refs"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.LocationCode = strings.TrimSpace(req.LocationCode)
	req.CropType = strings.TrimSpace(req.CropType)
	if req.LocationCode == "" {
		AbortWithError(c, newValidationError("location_code", "required", "location_code is required"))
		return
	}
	if req.CropType == "" {
		AbortWithError(c, newValidationError("crop_type", "required", "crop_type is required"))
		return
	}
	if req.QuantityKg <= 0 {
		AbortWithError(c, newValidationError("quantity_kg", "invalid_quantity", "quantity_kg must be positive"))
		return
	}
	if !req.EndDate.After(req.StartDate) {
		AbortWithError(c, newValidationError("end_date", "invalid_booking_window", "end_date must be after start_date"))
		return
	}

	status := bookingdomain.BookingStatusPending
	if req.Status != "" {
		status = bookingdomain.BookingStatus(req.Status)
		if !status.Valid() {
			AbortWithError(c, newValidationError("status", "invalid_booking_status", "unknown booking status"))
			return
		}
	}

	now := s.clock.Now()
	booking := &bookingdomain.Booking{
		ID:           s.node.Generate(),
		LocationCode: req.LocationCode,
		CropType:     req.CropType,
		QuantityKg:   req.QuantityKg,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Status:       status,
		VendorName:   strings.TrimSpace(req.VendorName),
		CertRefs:     certRefsToJSON(req.CertRefs),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.bookings.Create(c.Request.Context(), booking); err != nil {
		AbortWithError(c, err)
		return
	}

	s.syncAfterBookingWrite(c, booking.ID)
	c.JSON(http.StatusOK, gin.H{"data": booking})
}

type updateBookingRequest struct {
	LocationCode *string            `json:"location_code"`
	CropType     *string            `json:"crop_type"`
	QuantityKg   *float64           `json:"quantity_kg"`
	StartDate    *time.Time         `json:"start_date"`
	EndDate      *time.Time         `json:"end_date"`
	Status       *string            `json:"status"`
	VendorName   *string            `json:"vendor_name"`
	CertRefs     *map[string]string `json:"cert_refs"`
}

func (s *Server) UpdateBooking(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_booking_id", "invalid booking id"))
		return
	}

	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	booking, err := s.bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if req.LocationCode != nil {
		if strings.TrimSpace(*req.LocationCode) == "" {
			AbortWithError(c, newValidationError("location_code", "required", "location_code cannot be empty"))
			return
		}
		booking.LocationCode = strings.TrimSpace(*req.LocationCode)
	}
	if req.CropType != nil {
		booking.CropType = strings.TrimSpace(*req.CropType)
	}
	if req.QuantityKg != nil {
		if *req.QuantityKg <= 0 {
			AbortWithError(c, newValidationError("quantity_kg", "invalid_quantity", "quantity_kg must be positive"))
			return
		}
		booking.QuantityKg = *req.QuantityKg
	}
	if req.StartDate != nil {
		booking.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		booking.EndDate = *req.EndDate
	}
	if !booking.EndDate.After(booking.StartDate) {
		AbortWithError(c, newValidationError("end_date", "invalid_booking_window", "end_date must be after start_date"))
		return
	}
	if req.Status != nil {
		status := bookingdomain.BookingStatus(*req.Status)
		if !status.Valid() {
			AbortWithError(c, newValidationError("status", "invalid_booking_status", "unknown booking status"))
			return
		}
		booking.Status = status
	}
	if req.VendorName != nil {
		booking.VendorName = strings.TrimSpace(*req.VendorName)
	}
	if req.CertRefs != nil {
		booking.CertRefs = certRefsToJSON(*req.CertRefs)
	}
	booking.UpdatedAt = s.clock.Now()

	if err := s.bookings.Update(c.Request.Context(), booking); err != nil {
		AbortWithError(c, err)
		return
	}

	s.syncAfterBookingWrite(c, booking.ID)
	c.JSON(http.StatusOK, gin.H{"data": booking})
}

func (s *Server) GetBooking(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_booking_id", "invalid booking id"))
		return
	}

	booking, err := s.bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": booking})
}

func (s *Server) ListBookings(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Limit  int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status := bookingdomain.BookingStatus(strings.TrimSpace(query.Status))
	if status != "" && !status.Valid() {
		AbortWithError(c, newValidationError("status", "invalid_booking_status", "unknown booking status"))
		return
	}

	bookings, err := s.bookings.List(c.Request.Context(), status, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bookings})
}

// syncAfterBookingWrite refreshes the snapshot for a booking that just
// changed. The write already succeeded, so a sync failure is logged and
// left for the next sweep rather than failing the request.
func (s *Server) syncAfterBookingWrite(c *gin.Context, bookingID snowflake.ID) {
	if _, err := s.snapshots.Upsert(c.Request.Context(), bookingID, false); err != nil {
		s.log.Warn("snapshot sync after booking write failed",
			zap.String("booking_id", bookingID.String()),
			zap.Error(err),
		)
	}
}

func certRefsToJSON(refs map[string]string) datatypes.JSONMap {
	if len(refs) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(refs))
	for key, value := range refs {
		out[key] = value
	}
	return out
}
