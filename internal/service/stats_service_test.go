package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/repository"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSummarize(t *testing.T) {
	bs := []model.Booking{
		{Status: model.StatusCompleted, TotalAmount: money("60.00")},
		{Status: model.StatusCompleted, TotalAmount: money("40.00")},
		{Status: model.StatusConfirmed, TotalAmount: money("40.00")},
		{Status: model.StatusCancelled, TotalAmount: money("99.99")},
		{Status: model.StatusPending, TotalAmount: money("10.00")},
	}
	st := Summarize(bs)
	assert.Equal(t, 5, st.TotalBookings)
	assert.Equal(t, 2, st.CompletedBookings)
	assert.Equal(t, 1, st.ConfirmedBookings)
	assert.Equal(t, 1, st.CancelledBookings)
	assert.Equal(t, 1, st.PendingBookings)
	assert.Equal(t, 0, st.InProgressBookings)
	assert.Equal(t, "100.00", st.TotalRevenue.StringFixed(2))
	assert.Equal(t, "40.00", st.PendingRevenue.StringFixed(2))

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.TotalBookings)
	assert.True(t, empty.TotalRevenue.IsZero())
}

func TestSummarizeIsExact(t *testing.T) {
	var bs []model.Booking
	for i := 0; i < 10; i++ {
		bs = append(bs, model.Booking{Status: model.StatusCompleted, TotalAmount: money("0.10")})
	}
	assert.Equal(t, "1.00", Summarize(bs).TotalRevenue.StringFixed(2))
}

func TestRevenueByDay(t *testing.T) {
	now := time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC)
	day := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC) }
	bs := []model.Booking{
		{Status: model.StatusCompleted, RequestedAt: day(20, 9), TotalAmount: money("50.00")},
		{Status: model.StatusCompleted, RequestedAt: day(20, 17), TotalAmount: money("25.50")},
		{Status: model.StatusCompleted, RequestedAt: day(12, 9), TotalAmount: money("10.00")},
		{Status: model.StatusConfirmed, RequestedAt: day(20, 11), TotalAmount: money("500.00")},
		// Outside a 12-day window.
		{Status: model.StatusCompleted, RequestedAt: day(1, 9), TotalAmount: money("70.00")},
	}

	rows := RevenueByDay(bs, now, 30)
	require.Len(t, rows, 3)
	assert.Equal(t, day(1, 0), rows[0].Date)
	assert.Equal(t, day(12, 0), rows[1].Date)
	assert.Equal(t, day(20, 0), rows[2].Date)
	assert.Equal(t, "75.50", rows[2].Amount.StringFixed(2))

	rows = RevenueByDay(bs, now, 12)
	require.Len(t, rows, 1)
	assert.Equal(t, day(20, 0), rows[0].Date)

	assert.Empty(t, RevenueByDay(nil, now, 30))
}

func newStatsFixture(t *testing.T) (*fixture, *StatsService) {
	t.Helper()
	f := newFixture(t)
	stats := NewStatsService(StatsDeps{
		Ledger:   f.ledger,
		Services: f.catalog,
		Users:    f.catalog,
		Ratings:  f.catalog,
		Now:      func() time.Time { return f.now },
	})
	return f, stats
}

// complete drives a booking to COMPLETED as its provider.
func (f *fixture) complete(t *testing.T, b model.Booking, p booking.Principal) {
	t.Helper()
	for _, st := range []model.Status{model.StatusConfirmed, model.StatusInProgress, model.StatusCompleted} {
		_, err := f.svc.UpdateStatus(context.Background(), p, b.ID, st, "", 0)
		require.NoError(t, err)
	}
}

func TestProviderStats(t *testing.T) {
	f, stats := newStatsFixture(t)
	ctx := context.Background()
	f.catalog.PutService(model.Service{ID: 7, ProviderID: 2, Title: "Socket fitting", Price: money("60.00"), Available: true})
	f.catalog.PutService(model.Service{ID: 8, ProviderID: 2, Title: "Light fitting", Price: money("40.00"), Available: true})

	a := f.create(t, 7, slotT)
	b := f.create(t, 8, slotT)
	c := f.create(t, 8, slotT.Add(time.Hour))
	f.create(t, 3, slotT) // another provider

	f.complete(t, a, providerP)
	f.complete(t, b, providerP)
	_, err := f.svc.UpdateStatus(ctx, providerP, c.ID, model.StatusConfirmed, "", 0)
	require.NoError(t, err)

	st, err := stats.ProviderStats(ctx, providerP)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalBookings)
	assert.Equal(t, 2, st.CompletedBookings)
	assert.Equal(t, "100.00", st.TotalRevenue.StringFixed(2))
	assert.Equal(t, "40.00", st.PendingRevenue.StringFixed(2))

	_, err = stats.ProviderStats(ctx, customerP)
	assert.True(t, booking.IsKind(err, booking.KindForbidden))

	all, err := stats.Overview(ctx, adminP)
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalBookings)
	assert.Equal(t, 1, all.PendingBookings)
}

func TestAdminReportsRequireAdmin(t *testing.T) {
	_, stats := newStatsFixture(t)
	ctx := context.Background()

	_, err := stats.Overview(ctx, providerP)
	assert.True(t, booking.IsKind(err, booking.KindForbidden))
	_, err = stats.RevenueByDay(ctx, customerP, 30)
	assert.True(t, booking.IsKind(err, booking.KindForbidden))
	_, err = stats.StatusDistribution(ctx, providerP)
	assert.True(t, booking.IsKind(err, booking.KindForbidden))
	_, err = stats.TopServices(ctx, customerP, 5)
	assert.True(t, booking.IsKind(err, booking.KindForbidden))
	_, err = stats.TopProviders(ctx, customerP, 5)
	assert.True(t, booking.IsKind(err, booking.KindForbidden))
	_, err = stats.TopCustomers(ctx, providerP, 5)
	assert.True(t, booking.IsKind(err, booking.KindForbidden))
}

func TestRevenueByDayEmptyLedger(t *testing.T) {
	_, stats := newStatsFixture(t)
	rows, err := stats.RevenueByDay(context.Background(), adminP, 30)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = stats.RevenueByDay(context.Background(), adminP, 0)
	assert.True(t, booking.IsKind(err, booking.KindValidation))
}

func TestStatusDistribution(t *testing.T) {
	f, stats := newStatsFixture(t)
	ctx := context.Background()
	a := f.create(t, 1, slotT)
	f.create(t, 1, slotT.Add(time.Hour))
	c := f.create(t, 2, slotT)
	f.complete(t, a, providerP)
	_, err := f.svc.CancelBooking(ctx, customerP, c.ID, 0)
	require.NoError(t, err)

	dist, err := stats.StatusDistribution(ctx, adminP)
	require.NoError(t, err)
	assert.Equal(t, []model.StatusCount{
		{Status: model.StatusPending, Count: 1},
		{Status: model.StatusCompleted, Count: 1},
		{Status: model.StatusCancelled, Count: 1},
	}, dist)
}

func TestTopRankings(t *testing.T) {
	f, stats := newStatsFixture(t)
	ctx := context.Background()
	f.catalog.AddRating(2, 4)
	f.catalog.AddRating(2, 5)

	// Service 3 is booked first; services 1 and 3 tie on two bookings each.
	f.create(t, 3, slotT)
	a := f.create(t, 1, slotT)
	f.create(t, 1, slotT.Add(time.Hour))
	_, err := f.svc.CreateBooking(ctx, otherCust, CreateRequest{ServiceID: 3, RequestedAt: slotT.Add(time.Hour)})
	require.NoError(t, err)
	f.create(t, 2, slotT)
	f.complete(t, a, providerP)

	services, err := stats.TopServices(ctx, adminP, 0)
	require.NoError(t, err)
	require.Len(t, services, 3)
	assert.Equal(t, model.RankedService{ServiceID: 3, Title: "Leak repair", BookingCount: 2}, services[0])
	assert.Equal(t, uint64(1), services[1].ServiceID)
	assert.Equal(t, uint64(2), services[2].ServiceID)

	services, err = stats.TopServices(ctx, adminP, 1)
	require.NoError(t, err)
	assert.Len(t, services, 1)

	providers, err := stats.TopProviders(ctx, adminP, 5)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, model.RankedProvider{ProviderID: 2, Name: "Sparks Electric", BookingCount: 3, CompletedCount: 1, AvgRating: 4.5}, providers[0])
	assert.Equal(t, model.RankedProvider{ProviderID: 3, Name: "Pipe Pros", BookingCount: 2}, providers[1])

	customers, err := stats.TopCustomers(ctx, adminP, 5)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, model.RankedCustomer{CustomerID: 4, Name: "Dana Customer", BookingCount: 4}, customers[0])
	assert.Equal(t, model.RankedCustomer{CustomerID: 5, Name: "Lee Customer", BookingCount: 1}, customers[1])
}

func TestTopServicesUnknownTitle(t *testing.T) {
	ledger := repository.NewMemoryLedger()
	catalog := repository.NewMemoryCatalog()
	err := ledger.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.Insert(ctx, &model.Booking{ID: "x", CustomerID: 4, ServiceID: 42, ProviderID: 2, RequestedAt: slotT, Status: model.StatusPending, TotalAmount: money("1.00")})
	})
	require.NoError(t, err)

	stats := NewStatsService(StatsDeps{Ledger: ledger, Services: catalog, Users: catalog, Ratings: catalog})
	services, err := stats.TopServices(context.Background(), adminP, 5)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Unknown", services[0].Title)
}
