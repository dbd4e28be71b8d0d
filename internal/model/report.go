package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStats summarizes a set of bookings, either one provider's or the
// whole ledger.  Revenue figures are exact decimal sums of captured
// booking amounts: TotalRevenue over COMPLETED, PendingRevenue over
// CONFIRMED.
type BookingStats struct {
	TotalBookings      int             `json:"total_bookings"`
	PendingBookings    int             `json:"pending_bookings"`
	ConfirmedBookings  int             `json:"confirmed_bookings"`
	InProgressBookings int             `json:"in_progress_bookings"`
	CompletedBookings  int             `json:"completed_bookings"`
	CancelledBookings  int             `json:"cancelled_bookings"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	PendingRevenue     decimal.Decimal `json:"pending_revenue"`
}

// DailyRevenue is the completed-booking revenue of one UTC calendar day.
type DailyRevenue struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// StatusCount pairs a status with the number of bookings holding it.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// RankedService is a row of the top services report.
type RankedService struct {
	ServiceID    uint64 `json:"service_id"`
	Title        string `json:"title"`
	BookingCount int    `json:"booking_count"`
}

// RankedProvider is a row of the top providers report.  AvgRating is 0
// when the provider has no reviews.
type RankedProvider struct {
	ProviderID     uint64  `json:"provider_id"`
	Name           string  `json:"name"`
	BookingCount   int     `json:"booking_count"`
	CompletedCount int     `json:"completed_count"`
	AvgRating      float64 `json:"avg_rating"`
}

// RankedCustomer is a row of the top customers report.
type RankedCustomer struct {
	CustomerID   uint64 `json:"customer_id"`
	Name         string `json:"name"`
	BookingCount int    `json:"booking_count"`
}
