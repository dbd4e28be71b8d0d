package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/model"
)

// MemoryLedger is an in-process booking.Ledger.  A transaction holds the
// write lock for its whole duration and stages its writes, so concurrent
// transactions are serialized and a failed one leaves nothing behind.  It
// is meant for local runs and tests; data does not survive a restart.
type MemoryLedger struct {
	mu       sync.RWMutex
	bookings map[string]model.Booking
	order    []string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{bookings: make(map[string]model.Booking)}
}

func ctxErr(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return booking.Wrap(booking.KindTransient, op, err, "store unavailable, retry")
	}
	return nil
}

func notFound(op, id string) error {
	return booking.Wrap(booking.KindNotFound, op, ErrNotFound, "booking "+id+" not found")
}

// slotTaken scans view for an active booking on the slot.
func slotTaken(view func(yield func(model.Booking) bool), serviceID uint64, at time.Time, excludeID string) bool {
	at = model.SlotTime(at)
	taken := false
	view(func(b model.Booking) bool {
		if b.ID != excludeID && b.ServiceID == serviceID && b.IsActive() && b.RequestedAt.Equal(at) {
			taken = true
			return false
		}
		return true
	})
	return taken
}

func (l *MemoryLedger) each(yield func(model.Booking) bool) {
	for _, id := range l.order {
		if !yield(l.bookings[id]) {
			return
		}
	}
}

// Get implements booking.Ledger.
func (l *MemoryLedger) Get(ctx context.Context, id string) (model.Booking, error) {
	if err := ctxErr(ctx, "ledger.Get"); err != nil {
		return model.Booking{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bookings[id]
	if !ok {
		return model.Booking{}, notFound("ledger.Get", id)
	}
	return b, nil
}

// HasActiveBooking implements booking.SlotReader.
func (l *MemoryLedger) HasActiveBooking(ctx context.Context, serviceID uint64, at time.Time, excludeID string) (bool, error) {
	if err := ctxErr(ctx, "ledger.HasActiveBooking"); err != nil {
		return false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slotTaken(l.each, serviceID, at, excludeID), nil
}

func (l *MemoryLedger) filter(keep func(model.Booking) bool) []model.Booking {
	var out []model.Booking
	for _, id := range l.order {
		if b := l.bookings[id]; keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func partyOf(b model.Booking, p booking.Party) uint64 {
	if p == booking.PartyProvider {
		return b.ProviderID
	}
	return b.CustomerID
}

// List implements booking.Ledger.
func (l *MemoryLedger) List(ctx context.Context, party booking.Party, partyID uint64, status *model.Status) ([]model.Booking, error) {
	if err := ctxErr(ctx, "ledger.List"); err != nil {
		return nil, err
	}
	l.mu.RLock()
	out := l.filter(func(b model.Booking) bool {
		return partyOf(b, party) == partyID && (status == nil || b.Status == *status)
	})
	l.mu.RUnlock()
	// order is insertion order; reverse it so equal creation times keep
	// newest-inserted first, then sort stably by creation time.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListUpcoming implements booking.Ledger.
func (l *MemoryLedger) ListUpcoming(ctx context.Context, party booking.Party, partyID uint64, now time.Time) ([]model.Booking, error) {
	if err := ctxErr(ctx, "ledger.ListUpcoming"); err != nil {
		return nil, err
	}
	l.mu.RLock()
	out := l.filter(func(b model.Booking) bool {
		return partyOf(b, party) == partyID &&
			b.RequestedAt.After(now) &&
			(b.Status == model.StatusPending || b.Status == model.StatusConfirmed)
	})
	l.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

// All implements booking.Ledger.
func (l *MemoryLedger) All(ctx context.Context) ([]model.Booking, error) {
	if err := ctxErr(ctx, "ledger.All"); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.filter(func(model.Booking) bool { return true }), nil
}

// InTx implements booking.Ledger.
func (l *MemoryLedger) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	if err := ctxErr(ctx, "ledger.InTx"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &memTx{base: l, staged: make(map[string]model.Booking)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctxErr(ctx, "ledger.Commit"); err != nil {
		return err
	}
	for _, id := range tx.inserted {
		l.order = append(l.order, id)
	}
	for id, b := range tx.staged {
		l.bookings[id] = b
	}
	return nil
}

// memTx overlays staged writes on the committed map.
type memTx struct {
	base     *MemoryLedger
	staged   map[string]model.Booking
	inserted []string
}

func (t *memTx) lookup(id string) (model.Booking, bool) {
	if b, ok := t.staged[id]; ok {
		return b, true
	}
	b, ok := t.base.bookings[id]
	return b, ok
}

func (t *memTx) each(yield func(model.Booking) bool) {
	for _, id := range t.base.order {
		if b, ok := t.lookup(id); ok && !yield(b) {
			return
		}
	}
	for _, id := range t.inserted {
		if !yield(t.staged[id]) {
			return
		}
	}
}

func (t *memTx) HasActiveBooking(ctx context.Context, serviceID uint64, at time.Time, excludeID string) (bool, error) {
	if err := ctxErr(ctx, "ledger.HasActiveBooking"); err != nil {
		return false, err
	}
	return slotTaken(t.each, serviceID, at, excludeID), nil
}

func (t *memTx) GetForUpdate(ctx context.Context, id string) (model.Booking, error) {
	if err := ctxErr(ctx, "ledger.GetForUpdate"); err != nil {
		return model.Booking{}, err
	}
	b, ok := t.lookup(id)
	if !ok {
		return model.Booking{}, notFound("ledger.GetForUpdate", id)
	}
	return b, nil
}

func (t *memTx) Insert(ctx context.Context, b *model.Booking) error {
	if err := ctxErr(ctx, "ledger.Insert"); err != nil {
		return err
	}
	b.RequestedAt = model.SlotTime(b.RequestedAt)
	if _, exists := t.lookup(b.ID); exists {
		return booking.Wrap(booking.KindConflict, "ledger.Insert", ErrSlotTaken, "booking "+b.ID+" already exists")
	}
	if b.IsActive() && slotTaken(t.each, b.ServiceID, b.RequestedAt, b.ID) {
		return booking.Wrap(booking.KindConflict, "ledger.Insert", ErrSlotTaken, "slot already booked")
	}
	b.Revision = 1
	t.staged[b.ID] = *b
	t.inserted = append(t.inserted, b.ID)
	return nil
}

func (t *memTx) Update(ctx context.Context, b *model.Booking, expectedRevision int64) error {
	if err := ctxErr(ctx, "ledger.Update"); err != nil {
		return err
	}
	current, ok := t.lookup(b.ID)
	if !ok {
		return notFound("ledger.Update", b.ID)
	}
	if current.Revision != expectedRevision {
		return booking.Wrap(booking.KindConflict, "ledger.Update", ErrStaleRevision,
			"booking was modified by another request, reload and retry")
	}
	b.RequestedAt = model.SlotTime(b.RequestedAt)
	if b.IsActive() && slotTaken(t.each, current.ServiceID, b.RequestedAt, b.ID) {
		return booking.Wrap(booking.KindConflict, "ledger.Update", ErrSlotTaken, "slot already booked")
	}
	next := current
	next.RequestedAt = b.RequestedAt
	next.SpecialRequests = b.SpecialRequests
	next.Address = b.Address
	next.Phone = b.Phone
	next.Status = b.Status
	next.UpdatedAt = b.UpdatedAt.UTC()
	next.Revision = expectedRevision + 1
	t.staged[b.ID] = next
	b.Revision = next.Revision
	return nil
}
