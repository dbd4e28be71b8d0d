// Package queue defines the booking event payload exchanged over RabbitMQ
// and the audit consumer that records it.
package queue

import "time"

// BookingEventsQueue is the durable queue booking events are routed to.
const BookingEventsQueue = "booking.events"

// Event types.
const (
	EventCreated       = "booking.created"
	EventUpdated       = "booking.updated"
	EventStatusChanged = "booking.status_changed"
)

// BookingEvent is published after a booking mutation commits.  It carries
// enough for downstream consumers to audit or run analytics without
// querying the ledger.
type BookingEvent struct {
	EventID        string    `json:"event_id"`
	Type           string    `json:"type"`
	BookingID      string    `json:"booking_id"`
	CustomerID     uint64    `json:"customer_id"`
	ProviderID     uint64    `json:"provider_id"`
	ServiceID      uint64    `json:"service_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Revision       int64     `json:"revision"`
	TotalAmount    string    `json:"total_amount"`
	RequestedAt    time.Time `json:"requested_at"`
	ActorID        uint64    `json:"actor_id"`
	Notes          string    `json:"notes,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
