package booking

import (
	"context"
	"time"

	"github.com/iliyamo/service-booking/internal/model"
)

// Party selects which side of a booking a listing is keyed on.
type Party int

const (
	PartyCustomer Party = iota
	PartyProvider
)

// SlotReader answers the single question the conflict rule needs.
type SlotReader interface {
	// HasActiveBooking reports whether a booking other than excludeID is
	// active on serviceID at exactly at.  An empty excludeID excludes
	// nothing.
	HasActiveBooking(ctx context.Context, serviceID uint64, at time.Time, excludeID string) (bool, error)
}

// Ledger is the durable record of bookings.  Reads outside a transaction
// see committed data only.  Every write goes through InTx.
type Ledger interface {
	SlotReader

	// Get returns the booking or a not_found error.
	Get(ctx context.Context, id string) (model.Booking, error)
	// List returns the bookings of one customer or provider, newest first,
	// optionally restricted to a status.
	List(ctx context.Context, party Party, partyID uint64, status *model.Status) ([]model.Booking, error)
	// ListUpcoming returns the PENDING and CONFIRMED bookings of one party
	// whose slot is after now, earliest slot first.
	ListUpcoming(ctx context.Context, party Party, partyID uint64, now time.Time) ([]model.Booking, error)
	// All returns every booking in creation order, oldest first.
	All(ctx context.Context) ([]model.Booking, error)
	// InTx runs fn in a transaction.  If fn returns an error nothing it
	// wrote is kept.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write side of the ledger, valid only inside InTx.
type Tx interface {
	SlotReader

	// GetForUpdate reads a booking and holds it against concurrent writers
	// until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (model.Booking, error)
	// Insert stores a new booking.  The store rejects a second active
	// booking on the same slot with a conflict error.
	Insert(ctx context.Context, b *model.Booking) error
	// Update replaces the stored booking when its revision still equals
	// expectedRevision, and bumps b.Revision.  A mismatch leaves the store
	// untouched and yields a conflict error.
	Update(ctx context.Context, b *model.Booking, expectedRevision int64) error
}

// ServiceLookup reads the external service catalog.
type ServiceLookup interface {
	GetService(ctx context.Context, id uint64) (model.Service, error)
}

// UserLookup reads the external user directory.
type UserLookup interface {
	GetUser(ctx context.Context, id uint64) (model.User, error)
}

// RatingLookup reads review aggregates.  Providers without reviews are
// absent from the result.
type RatingLookup interface {
	AverageRatings(ctx context.Context, providerIDs []uint64) (map[uint64]float64, error)
}
