package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/model"
)

// activeStatuses is the SQL list of statuses that occupy a slot.  It must
// match the generated active_slot column in the schema.
const activeStatuses = `'PENDING','CONFIRMED','IN_PROGRESS'`

const bookingColumns = `id, customer_id, service_id, provider_id, requested_at, special_requests,
	address, phone, total_amount, status, created_at, updated_at, revision`

// BookingLedger is the MySQL implementation of booking.Ledger.  The
// bookings table carries a generated active_slot column that is 1 for
// active statuses and NULL otherwise; a UNIQUE key on (service_id,
// requested_at, active_slot) makes the store itself refuse a second
// active booking on a slot.  All timestamps are stored in UTC.
type BookingLedger struct {
	db      *sql.DB
	timeout time.Duration
}

// NewBookingLedger returns a ledger bound to db.  When timeout is positive
// every call, and every transaction as a whole, is bounded by it.
func NewBookingLedger(db *sql.DB, timeout time.Duration) *BookingLedger {
	return &BookingLedger{db: db, timeout: timeout}
}

func (l *BookingLedger) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(r rowScanner) (model.Booking, error) {
	var b model.Booking
	err := r.Scan(
		&b.ID, &b.CustomerID, &b.ServiceID, &b.ProviderID, &b.RequestedAt, &b.SpecialRequests,
		&b.Address, &b.Phone, &b.TotalAmount, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Revision,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.RequestedAt = b.RequestedAt.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func getBooking(ctx context.Context, q queryer, op, id string, forUpdate bool) (model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return model.Booking{}, booking.Wrap(booking.KindNotFound, op, ErrNotFound, "booking "+id+" not found")
	}
	if err != nil {
		return model.Booking{}, classify(op, err)
	}
	return b, nil
}

// hasActiveBooking locks the matching index range when lock is true so a
// concurrent transaction cannot slip a booking into the slot before the
// caller's write commits.
func hasActiveBooking(ctx context.Context, q queryer, op string, serviceID uint64, at time.Time, excludeID string, lock bool) (bool, error) {
	query := `SELECT COUNT(*) FROM bookings
		WHERE service_id = ? AND requested_at = ? AND status IN (` + activeStatuses + `) AND id <> ?`
	if lock {
		query += ` FOR UPDATE`
	}
	var n int
	if err := q.QueryRowContext(ctx, query, serviceID, model.SlotTime(at), excludeID).Scan(&n); err != nil {
		return false, classify(op, err)
	}
	return n > 0, nil
}

// Get implements booking.Ledger.
func (l *BookingLedger) Get(ctx context.Context, id string) (model.Booking, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()
	return getBooking(ctx, l.db, "ledger.Get", id, false)
}

// HasActiveBooking implements booking.SlotReader outside a transaction.
func (l *BookingLedger) HasActiveBooking(ctx context.Context, serviceID uint64, at time.Time, excludeID string) (bool, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()
	return hasActiveBooking(ctx, l.db, "ledger.HasActiveBooking", serviceID, at, excludeID, false)
}

func partyColumn(p booking.Party) string {
	if p == booking.PartyProvider {
		return "provider_id"
	}
	return "customer_id"
}

// List implements booking.Ledger.  Ties on created_at fall back to the
// insertion sequence so the order is stable.
func (l *BookingLedger) List(ctx context.Context, party booking.Party, partyID uint64, status *model.Status) ([]model.Booking, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()
	var sb strings.Builder
	sb.WriteString(`SELECT ` + bookingColumns + ` FROM bookings WHERE ` + partyColumn(party) + ` = ?`)
	args := []any{partyID}
	if status != nil {
		sb.WriteString(` AND status = ?`)
		args = append(args, *status)
	}
	sb.WriteString(` ORDER BY created_at DESC, seq DESC`)
	rows, err := l.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, classify("ledger.List", err)
	}
	out, err := collectBookings(rows)
	return out, classify("ledger.List", err)
}

// ListUpcoming implements booking.Ledger.
func (l *BookingLedger) ListUpcoming(ctx context.Context, party booking.Party, partyID uint64, now time.Time) ([]model.Booking, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE ` + partyColumn(party) + ` = ? AND requested_at > ? AND status IN ('PENDING','CONFIRMED')
		ORDER BY requested_at ASC, seq ASC`
	rows, err := l.db.QueryContext(ctx, query, partyID, now.UTC())
	if err != nil {
		return nil, classify("ledger.ListUpcoming", err)
	}
	out, err := collectBookings(rows)
	return out, classify("ledger.ListUpcoming", err)
}

// All implements booking.Ledger.
func (l *BookingLedger) All(ctx context.Context) ([]model.Booking, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()
	rows, err := l.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY seq ASC`)
	if err != nil {
		return nil, classify("ledger.All", err)
	}
	out, err := collectBookings(rows)
	return out, classify("ledger.All", err)
}

// txAttempts bounds how often InTx reruns fn after InnoDB aborted it on
// lock contention.
const txAttempts = 3

// InTx implements booking.Ledger.  The transaction is rolled back unless
// fn returns nil and the commit succeeds.  Deadlocks and lock wait
// timeouts rerun fn in a fresh transaction, so a writer that lost a race
// on a slot sees the winner's committed row and reports a conflict.
func (l *BookingLedger) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		if err = l.runTx(ctx, fn); !lockContention(err) || attempt == txAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return err
}

func (l *BookingLedger) runTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	sqlTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("ledger.InTx", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(ctx, &mysqlTx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return classify("ledger.Commit", err)
	}
	committed = true
	return nil
}

// mysqlTx implements booking.Tx over a *sql.Tx.
type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) HasActiveBooking(ctx context.Context, serviceID uint64, at time.Time, excludeID string) (bool, error) {
	return hasActiveBooking(ctx, t.tx, "ledger.HasActiveBooking", serviceID, at, excludeID, true)
}

func (t *mysqlTx) GetForUpdate(ctx context.Context, id string) (model.Booking, error) {
	return getBooking(ctx, t.tx, "ledger.GetForUpdate", id, true)
}

func (t *mysqlTx) Insert(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	b.RequestedAt = model.SlotTime(b.RequestedAt)
	b.Revision = 1
	_, err := t.tx.ExecContext(ctx, q,
		b.ID, b.CustomerID, b.ServiceID, b.ProviderID, b.RequestedAt, b.SpecialRequests,
		b.Address, b.Phone, b.TotalAmount, b.Status, b.CreatedAt.UTC(), b.UpdatedAt.UTC(), b.Revision,
	)
	return classify("ledger.Insert", err)
}

// Update writes the mutable columns only.  Identity, parties, amount and
// creation time are never part of the statement.
func (t *mysqlTx) Update(ctx context.Context, b *model.Booking, expectedRevision int64) error {
	const q = `UPDATE bookings
		SET requested_at = ?, special_requests = ?, address = ?, phone = ?, status = ?, updated_at = ?, revision = revision + 1
		WHERE id = ? AND revision = ?`
	b.RequestedAt = model.SlotTime(b.RequestedAt)
	res, err := t.tx.ExecContext(ctx, q,
		b.RequestedAt, b.SpecialRequests, b.Address, b.Phone, b.Status, b.UpdatedAt.UTC(),
		b.ID, expectedRevision,
	)
	if err != nil {
		return classify("ledger.Update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("ledger.Update", err)
	}
	if n == 0 {
		var current int64
		err := t.tx.QueryRowContext(ctx, `SELECT revision FROM bookings WHERE id = ?`, b.ID).Scan(&current)
		if err == sql.ErrNoRows {
			return booking.Wrap(booking.KindNotFound, "ledger.Update", ErrNotFound, "booking "+b.ID+" not found")
		}
		if err != nil {
			return classify("ledger.Update", err)
		}
		return booking.Wrap(booking.KindConflict, "ledger.Update", ErrStaleRevision,
			"booking was modified by another request, reload and retry")
	}
	b.Revision = expectedRevision + 1
	return nil
}
