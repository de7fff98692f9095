package domain

import (
	"encoding/json"

	"gorm.io/datatypes"

	bookingdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/booking/domain"
	telemetrydomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/domain"
)

// ApplyBooking projects the booking's current fields onto the snapshot.
func (s *Snapshot) ApplyBooking(booking *bookingdomain.Booking) {
	if booking == nil {
		return
	}
	s.BookingReference = booking.ID
	s.LocationCode = booking.LocationCode
	s.CropType = booking.CropType
	s.QuantityKg = booking.QuantityKg
	s.StartDate = booking.StartDate
	s.EndDate = booking.EndDate
	s.BookingStatus = string(booking.Status)
	s.VendorName = booking.VendorName
	if booking.CertRefs != nil {
		s.CertRefs = booking.CertRefs
	}
}

// ApplyTelemetry full-replaces the telemetry-derived fields from the
// reading. An empty reading leaves the previous fields in place: stale
// telemetry on the snapshot beats dropping data the source no longer has.
func (s *Snapshot) ApplyTelemetry(reading telemetrydomain.Reading) error {
	if reading.Sensors != nil {
		raw, err := json.Marshal(reading.Sensors)
		if err != nil {
			return err
		}
		s.SensorSummary = datatypes.JSON(raw)
	}
	if len(reading.PestEvents) > 0 {
		raw, err := json.Marshal(reading.PestEvents)
		if err != nil {
			return err
		}
		s.PestEvents = datatypes.JSON(raw)
	}
	return nil
}
