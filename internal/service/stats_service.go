package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/logger"
	"github.com/iliyamo/service-booking/internal/model"
)

const (
	defaultTopLimit = 5
	unknownName     = "Unknown"
)

// StatsDeps are the collaborators of StatsService.
type StatsDeps struct {
	Ledger   booking.Ledger
	Services booking.ServiceLookup
	Users    booking.UserLookup
	Ratings  booking.RatingLookup
	Log      *zap.Logger
	Now      func() time.Time
}

// StatsService derives summaries from the ledger.  It only reads; every
// figure is computed from booking fields so any ledger implementation
// yields the same answer.
type StatsService struct {
	ledger   booking.Ledger
	services booking.ServiceLookup
	users    booking.UserLookup
	ratings  booking.RatingLookup
	log      *zap.Logger
	now      func() time.Time
}

func NewStatsService(d StatsDeps) *StatsService {
	s := &StatsService{
		ledger:   d.Ledger,
		services: d.Services,
		users:    d.Users,
		ratings:  d.Ratings,
		log:      logger.OrNop(d.Log),
		now:      d.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func requireAdmin(p booking.Principal) error {
	if !p.IsAdmin() {
		return booking.E(booking.KindForbidden, "", "admin role required")
	}
	return nil
}

// Summarize counts bookings per status and sums revenue with exact
// decimal arithmetic.
func Summarize(bookings []model.Booking) model.BookingStats {
	st := model.BookingStats{TotalRevenue: decimal.Zero, PendingRevenue: decimal.Zero}
	for _, b := range bookings {
		st.TotalBookings++
		switch b.Status {
		case model.StatusPending:
			st.PendingBookings++
		case model.StatusConfirmed:
			st.ConfirmedBookings++
			st.PendingRevenue = st.PendingRevenue.Add(b.TotalAmount)
		case model.StatusInProgress:
			st.InProgressBookings++
		case model.StatusCompleted:
			st.CompletedBookings++
			st.TotalRevenue = st.TotalRevenue.Add(b.TotalAmount)
		case model.StatusCancelled:
			st.CancelledBookings++
		}
	}
	return st
}

// ProviderStats summarizes the bookings on the calling provider's services.
func (s *StatsService) ProviderStats(ctx context.Context, p booking.Principal) (model.BookingStats, error) {
	const op = "stats.ProviderStats"
	if !p.IsProvider() {
		return model.BookingStats{}, booking.E(booking.KindForbidden, op, "provider role required")
	}
	bookings, err := s.ledger.List(ctx, booking.PartyProvider, p.ID, nil)
	if err != nil {
		return model.BookingStats{}, booking.WithOp(op, err)
	}
	return Summarize(bookings), nil
}

// Overview summarizes the whole ledger.  Administrators only.
func (s *StatsService) Overview(ctx context.Context, p booking.Principal) (model.BookingStats, error) {
	const op = "stats.Overview"
	if err := requireAdmin(p); err != nil {
		return model.BookingStats{}, booking.WithOp(op, err)
	}
	all, err := s.ledger.All(ctx)
	if err != nil {
		return model.BookingStats{}, booking.WithOp(op, err)
	}
	return Summarize(all), nil
}

// RevenueByDay sums COMPLETED bookings per UTC calendar day of their slot,
// for slots on or after the start of the day windowDays before today.
// Days without completed bookings are omitted.
func (s *StatsService) RevenueByDay(ctx context.Context, p booking.Principal, windowDays int) ([]model.DailyRevenue, error) {
	const op = "stats.RevenueByDay"
	if err := requireAdmin(p); err != nil {
		return nil, booking.WithOp(op, err)
	}
	if windowDays <= 0 {
		return nil, booking.E(booking.KindValidation, op, "window must be at least one day")
	}
	all, err := s.ledger.All(ctx)
	if err != nil {
		return nil, booking.WithOp(op, err)
	}
	rows := RevenueByDay(all, s.now(), windowDays)
	s.log.Debug("revenue by day computed", zap.Int("window_days", windowDays), zap.Int("days", len(rows)))
	return rows, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RevenueByDay is the pure form of StatsService.RevenueByDay.
func RevenueByDay(bookings []model.Booking, now time.Time, windowDays int) []model.DailyRevenue {
	from := startOfDay(now).AddDate(0, 0, -windowDays)
	byDay := map[time.Time]decimal.Decimal{}
	for _, b := range bookings {
		if b.Status != model.StatusCompleted || b.RequestedAt.Before(from) {
			continue
		}
		day := startOfDay(b.RequestedAt)
		byDay[day] = byDay[day].Add(b.TotalAmount)
	}
	out := make([]model.DailyRevenue, 0, len(byDay))
	for day, amount := range byDay {
		out = append(out, model.DailyRevenue{Date: day, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// StatusDistribution counts bookings per status across the ledger.
// Statuses nobody holds are omitted; the rest follow lifecycle order.
func (s *StatsService) StatusDistribution(ctx context.Context, p booking.Principal) ([]model.StatusCount, error) {
	const op = "stats.StatusDistribution"
	if err := requireAdmin(p); err != nil {
		return nil, booking.WithOp(op, err)
	}
	all, err := s.ledger.All(ctx)
	if err != nil {
		return nil, booking.WithOp(op, err)
	}
	counts := map[model.Status]int{}
	for _, b := range all {
		counts[b.Status]++
	}
	out := make([]model.StatusCount, 0, len(counts))
	for _, st := range model.Statuses {
		if n := counts[st]; n > 0 {
			out = append(out, model.StatusCount{Status: st, Count: n})
		}
	}
	return out, nil
}

// tally counts bookings per key and remembers the order keys first
// appeared in, which breaks ties.
type tally struct {
	counts map[uint64]int
	first  map[uint64]int
}

func countBy(bookings []model.Booking, key func(model.Booking) uint64) tally {
	t := tally{counts: map[uint64]int{}, first: map[uint64]int{}}
	for i, b := range bookings {
		k := key(b)
		if _, seen := t.first[k]; !seen {
			t.first[k] = i
		}
		t.counts[k]++
	}
	return t
}

// top returns up to limit keys by descending count.
func (t tally) top(limit int) []uint64 {
	keys := make([]uint64, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := t.counts[keys[i]], t.counts[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return t.first[keys[i]] < t.first[keys[j]]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultTopLimit
	}
	return limit
}

func (s *StatsService) allForAdmin(ctx context.Context, op string, p booking.Principal) ([]model.Booking, error) {
	if err := requireAdmin(p); err != nil {
		return nil, booking.WithOp(op, err)
	}
	all, err := s.ledger.All(ctx)
	if err != nil {
		return nil, booking.WithOp(op, err)
	}
	return all, nil
}

func (s *StatsService) serviceTitle(ctx context.Context, id uint64) (string, error) {
	svc, err := s.services.GetService(ctx, id)
	if booking.IsKind(err, booking.KindNotFound) {
		return unknownName, nil
	}
	if err != nil {
		return "", err
	}
	return svc.Title, nil
}

func (s *StatsService) userName(ctx context.Context, id uint64) (string, error) {
	u, err := s.users.GetUser(ctx, id)
	if booking.IsKind(err, booking.KindNotFound) {
		return unknownName, nil
	}
	if err != nil {
		return "", err
	}
	if u.FullName == "" {
		return u.Email, nil
	}
	return u.FullName, nil
}

// TopServices ranks services by booking count.
func (s *StatsService) TopServices(ctx context.Context, p booking.Principal, limit int) ([]model.RankedService, error) {
	const op = "stats.TopServices"
	all, err := s.allForAdmin(ctx, op, p)
	if err != nil {
		return nil, err
	}
	t := countBy(all, func(b model.Booking) uint64 { return b.ServiceID })
	keys := t.top(normalizeLimit(limit))
	out := make([]model.RankedService, 0, len(keys))
	for _, id := range keys {
		title, err := s.serviceTitle(ctx, id)
		if err != nil {
			return nil, booking.WithOp(op, err)
		}
		out = append(out, model.RankedService{ServiceID: id, Title: title, BookingCount: t.counts[id]})
	}
	return out, nil
}

// TopProviders ranks providers by booking count and reports each one's
// completed bookings and mean review rating.
func (s *StatsService) TopProviders(ctx context.Context, p booking.Principal, limit int) ([]model.RankedProvider, error) {
	const op = "stats.TopProviders"
	all, err := s.allForAdmin(ctx, op, p)
	if err != nil {
		return nil, err
	}
	t := countBy(all, func(b model.Booking) uint64 { return b.ProviderID })
	completed := map[uint64]int{}
	for _, b := range all {
		if b.Status == model.StatusCompleted {
			completed[b.ProviderID]++
		}
	}
	keys := t.top(normalizeLimit(limit))
	ratings, err := s.ratings.AverageRatings(ctx, keys)
	if err != nil {
		return nil, booking.WithOp(op, err)
	}
	out := make([]model.RankedProvider, 0, len(keys))
	for _, id := range keys {
		name, err := s.userName(ctx, id)
		if err != nil {
			return nil, booking.WithOp(op, err)
		}
		out = append(out, model.RankedProvider{
			ProviderID:     id,
			Name:           name,
			BookingCount:   t.counts[id],
			CompletedCount: completed[id],
			AvgRating:      ratings[id],
		})
	}
	return out, nil
}

// TopCustomers ranks customers by booking count.
func (s *StatsService) TopCustomers(ctx context.Context, p booking.Principal, limit int) ([]model.RankedCustomer, error) {
	const op = "stats.TopCustomers"
	all, err := s.allForAdmin(ctx, op, p)
	if err != nil {
		return nil, err
	}
	t := countBy(all, func(b model.Booking) uint64 { return b.CustomerID })
	keys := t.top(normalizeLimit(limit))
	out := make([]model.RankedCustomer, 0, len(keys))
	for _, id := range keys {
		name, err := s.userName(ctx, id)
		if err != nil {
			return nil, booking.WithOp(op, err)
		}
		out = append(out, model.RankedCustomer{CustomerID: id, Name: name, BookingCount: t.counts[id]})
	}
	return out, nil
}
