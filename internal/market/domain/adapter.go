package domain

import "context"

// ListingStore pushes a payload to the external market listing store.
// Implementations must bound the call with a timeout; a timeout is a
// publish failure, never an ambiguous success.
type ListingStore interface {
	PublishListing(ctx context.Context, payload ListingPayload) error
}
