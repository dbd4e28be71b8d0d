package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service is a bookable offering owned by a provider.  The catalog is
// maintained elsewhere; the booking engine only reads it to price and
// authorize bookings.
//
// Fields:
//
//	ID          – primary key identifier.
//	ProviderID  – user who owns the service.
//	Title       – display title, used by admin reports.
//	Price       – current price; copied into new bookings.
//	Available   – whether new bookings are accepted.
//	CreatedAt   – timestamp of creation.
type Service struct {
	ID         uint64          // services.id
	ProviderID uint64          // services.provider_id
	Title      string          // services.title
	Price      decimal.Decimal // services.price DECIMAL(10,2)
	Available  bool            // services.availability_status = 'AVAILABLE'
	CreatedAt  time.Time       // services.created_at
}
