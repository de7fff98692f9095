package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Store is the read surface the snapshot pipeline depends on.
type Store interface {
	GetBooking(ctx context.Context, id snowflake.ID) (*Booking, error)
}

// Repository provides full persistence for bookings.
type Repository interface {
	Store
	Create(ctx context.Context, booking *Booking) error
	Update(ctx context.Context, booking *Booking) error
	List(ctx context.Context, status BookingStatus, limit int) ([]Booking, error)
	ListByLocation(ctx context.Context, locationCode string, limit int) ([]Booking, error)
}
