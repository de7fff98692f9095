package events

// Snapshot lifecycle event types written to the market_events outbox.
const (
	EventSnapshotCreated    = "snapshot.created"
	EventSnapshotPublished  = "snapshot.published"
	EventSnapshotReconciled = "snapshot.reconciled"
	EventSnapshotFailed     = "snapshot.failed"
	EventSnapshotArchived   = "snapshot.archived"
)

// SnapshotPayload captures the minimal data downstream consumers need to
// react to a snapshot transition.
type SnapshotPayload struct {
	SnapshotID       string `json:"snapshot_id"`
	BookingReference string `json:"booking_reference"`
	Status           string `json:"status"`
	Cause            string `json:"cause,omitempty"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p SnapshotPayload) ToMap() map[string]any {
	payload := map[string]any{
		"snapshot_id":       p.SnapshotID,
		"booking_reference": p.BookingReference,
		"status":            p.Status,
	}
	if p.Cause != "" {
		payload["cause"] = p.Cause
	}
	return payload
}
