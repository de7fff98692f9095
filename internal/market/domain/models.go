// Package domain contains contracts for publishing snapshots to the
// external market listing store.
package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	snapshotdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/snapshot/domain"
	telemetrydomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/telemetry/domain"
)

// ListingPayload is the public-facing projection of a snapshot. It carries
// no farmer PII and no internal row ids beyond the listing reference.
type ListingPayload struct {
	ListingRef    string                        `json:"listing_ref"`
	CropType      string                        `json:"crop_type"`
	QuantityKg    float64                       `json:"quantity_kg"`
	StartDate     time.Time                     `json:"start_date"`
	EndDate       time.Time                     `json:"end_date"`
	VendorName    string                        `json:"vendor_name,omitempty"`
	CertRefs      map[string]any                `json:"cert_refs,omitempty"`
	SensorSummary *telemetrydomain.SensorSummary `json:"sensor_summary,omitempty"`
	PestEvents    []telemetrydomain.PestSighting `json:"pest_events,omitempty"`
	RefreshedAt   time.Time                     `json:"refreshed_at"`
}

// BuildListingPayload projects a snapshot into its public listing shape.
func BuildListingPayload(snapshot *snapshotdomain.Snapshot) (ListingPayload, error) {
	if snapshot == nil {
		return ListingPayload{}, snapshotdomain.ErrInvalidSnapshot
	}
	payload := ListingPayload{
		ListingRef:  snapshot.BookingReference.String(),
		CropType:    snapshot.CropType,
		QuantityKg:  snapshot.QuantityKg,
		StartDate:   snapshot.StartDate,
		EndDate:     snapshot.EndDate,
		VendorName:  snapshot.VendorName,
		RefreshedAt: snapshot.UpdatedAt,
	}
	if len(snapshot.CertRefs) > 0 {
		payload.CertRefs = map[string]any(snapshot.CertRefs)
	}
	if len(snapshot.SensorSummary) > 0 {
		var summary telemetrydomain.SensorSummary
		if err := json.Unmarshal(snapshot.SensorSummary, &summary); err != nil {
			return ListingPayload{}, err
		}
		payload.SensorSummary = &summary
	}
	if len(snapshot.PestEvents) > 0 {
		var sightings []telemetrydomain.PestSighting
		if err := json.Unmarshal(snapshot.PestEvents, &sightings); err != nil {
			return ListingPayload{}, err
		}
		payload.PestEvents = sightings
	}
	return payload, nil
}

// PublishResult reports the outcome of one publish attempt.
type PublishResult struct {
	SnapshotID       snowflake.ID                  `json:"snapshot_id"`
	Status           snapshotdomain.SnapshotStatus `json:"status"`
	PublishedAt      *time.Time                    `json:"published_at,omitempty"`
	AlreadyPublished bool                          `json:"already_published"`
	Failure          string                        `json:"failure,omitempty"`
}

// Failed reports whether the publish attempt left the snapshot failed.
func (r PublishResult) Failed() bool {
	return r.Status == snapshotdomain.StatusFailed
}

// ReconcileResult reports the outcome of one reconcile attempt.
type ReconcileResult struct {
	SnapshotID snowflake.ID `json:"snapshot_id"`
	Refreshed  bool         `json:"refreshed"`
	Skipped    bool         `json:"skipped"`
	Failure    string       `json:"failure,omitempty"`
}

var (
	ErrListingUnavailable = errors.New("listing_store_unavailable")
	ErrNotPublishable     = errors.New("snapshot_not_publishable")
)
