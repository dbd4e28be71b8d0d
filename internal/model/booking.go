package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking records a customer's reservation of a provider's service at a
// single point in time.  It is the only entity written by the booking
// engine; services and users are owned by other systems and only read.
//
// Fields:
//
//	ID              – opaque identifier (UUID) assigned at creation.
//	CustomerID      – user who placed the booking.
//	ServiceID       – service being booked.
//	ProviderID      – owner of the service at creation time.
//	RequestedAt     – slot instant, stored in UTC at second precision.
//	SpecialRequests – optional free text from the customer.
//	Address         – optional customer address.
//	Phone           – optional customer phone number.
//	TotalAmount     – service price captured at creation; never recomputed.
//	Status          – current lifecycle status.
//	CreatedAt       – creation timestamp.
//	UpdatedAt       – last modification timestamp.
//	Revision        – optimistic concurrency counter, starts at 1.
type Booking struct {
	ID              string          `json:"id"`               // bookings.id
	CustomerID      uint64          `json:"customer_id"`      // bookings.customer_id
	ServiceID       uint64          `json:"service_id"`       // bookings.service_id
	ProviderID      uint64          `json:"provider_id"`      // bookings.provider_id
	RequestedAt     time.Time       `json:"requested_at"`     // bookings.requested_at
	SpecialRequests string          `json:"special_requests"` // bookings.special_requests
	Address         string          `json:"address"`          // bookings.address
	Phone           string          `json:"phone"`            // bookings.phone
	TotalAmount     decimal.Decimal `json:"total_amount"`     // bookings.total_amount DECIMAL(10,2)
	Status          Status          `json:"status"`           // bookings.status
	CreatedAt       time.Time       `json:"created_at"`       // bookings.created_at
	UpdatedAt       time.Time       `json:"updated_at"`       // bookings.updated_at
	Revision        int64           `json:"revision"`         // bookings.revision
}

// IsActive reports whether the booking currently occupies its slot.
func (b Booking) IsActive() bool { return b.Status.IsActive() }

// BookingPatch carries the customer-editable fields of a PENDING booking.
// Nil fields are left untouched.
type BookingPatch struct {
	RequestedAt     *time.Time
	SpecialRequests *string
	Address         *string
	Phone           *string
}

// Empty reports whether the patch changes nothing.
func (p BookingPatch) Empty() bool {
	return p.RequestedAt == nil && p.SpecialRequests == nil && p.Address == nil && p.Phone == nil
}

// SlotTime normalizes an instant to the precision the ledger stores:
// UTC, truncated to the second.  Two bookings collide when their
// normalized instants are equal.
func SlotTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// StampTime normalizes a creation or modification time to the
// microsecond precision of the ledger's DATETIME(6) columns.
func StampTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
