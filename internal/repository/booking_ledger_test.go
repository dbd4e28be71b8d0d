package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/model"
)

func newMockLedger(t *testing.T) (*BookingLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBookingLedger(db, time.Second), mock
}

var rowColumns = []string{
	"id", "customer_id", "service_id", "provider_id", "requested_at", "special_requests",
	"address", "phone", "total_amount", "status", "created_at", "updated_at", "revision",
}

func TestBookingLedgerGet(t *testing.T) {
	l, mock := newMockLedger(t)
	created := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \?`).
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
			"b-1", 10, 1, 20, slot, "", "", "", "50.00", "CONFIRMED", created, created, 3,
		))

	b, err := l.Get(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.True(t, b.TotalAmount.Equal(decimal.RequireFromString("50")))
	assert.Equal(t, int64(3), b.Revision)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingLedgerGetMissing(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err := l.Get(context.Background(), "nope")
	assert.True(t, booking.IsKind(err, booking.KindNotFound))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBookingLedgerInsertDuplicateSlotIsConflict(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings.*FOR UPDATE`).
		WithArgs(uint64(1), slot, "").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_bookings_active_slot'"})
	mock.ExpectRollback()

	b := newBooking("b-2", slot, model.StatusPending)
	err := l.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		taken, err := tx.HasActiveBooking(ctx, b.ServiceID, b.RequestedAt, "")
		if err != nil || taken {
			return err
		}
		return tx.Insert(ctx, &b)
	})
	assert.True(t, booking.IsKind(err, booking.KindConflict))
	assert.True(t, errors.Is(err, ErrSlotTaken))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingLedgerUpdateStaleRevision(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookings\s+SET .* WHERE id = \? AND revision = \?`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT revision FROM bookings WHERE id = \?`).
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows([]string{"revision"}).AddRow(5))
	mock.ExpectRollback()

	b := newBooking("b-1", slot, model.StatusConfirmed)
	err := l.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.Update(ctx, &b, 4)
	})
	assert.True(t, booking.IsKind(err, booking.KindConflict))
	assert.True(t, errors.Is(err, ErrStaleRevision))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingLedgerUpdateBumpsRevision(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookings`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := newBooking("b-1", slot, model.StatusConfirmed)
	err := l.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.Update(ctx, &b, 4)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.Revision)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingLedgerLockTimeoutIsTransient(t *testing.T) {
	l, mock := newMockLedger(t)
	for i := 0; i < txAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).
			WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
		mock.ExpectRollback()
	}

	calls := 0
	err := l.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		calls++
		_, err := tx.GetForUpdate(ctx, "b-1")
		return err
	})
	assert.True(t, booking.Retryable(err))
	assert.Equal(t, txAttempts, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Two creates racing on an empty slot can deadlock on InnoDB gap locks.
// The loser reruns, sees the winner's row and must report a conflict.
func TestBookingLedgerDeadlockedCreateRetriesIntoConflict(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings.*FOR UPDATE`).
		WithArgs(uint64(1), slot, "").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings.*FOR UPDATE`).
		WithArgs(uint64(1), slot, "").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	b := newBooking("b-3", slot, model.StatusPending)
	err := l.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		if err := (booking.ConflictChecker{}).Reserve(ctx, tx, b.ServiceID, b.RequestedAt, ""); err != nil {
			return err
		}
		return tx.Insert(ctx, &b)
	})
	assert.True(t, booking.IsKind(err, booking.KindConflict), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingLedgerDoesNotRetryOtherErrors(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	calls := 0
	b := newBooking("b-4", slot, model.StatusPending)
	err := l.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		calls++
		return tx.Insert(ctx, &b)
	})
	assert.True(t, booking.IsKind(err, booking.KindConflict))
	assert.Equal(t, 1, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingLedgerInvalidConnIsTransient(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectBegin().WillReturnError(mysql.ErrInvalidConn)

	err := l.InTx(context.Background(), func(context.Context, booking.Tx) error { return nil })
	assert.True(t, booking.Retryable(err))
}

func TestReviewRepoAverageRatings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(`SELECT provider_id, AVG\(rating\) FROM reviews WHERE provider_id IN \(\?,\?\)`).
		WithArgs(uint64(2), uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"provider_id", "avg"}).AddRow(2, 4.5))

	got, err := NewReviewRepo(db).AverageRatings(context.Background(), []uint64{2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]float64{2: 4.5}, got)
}

func TestServiceRepoGetService(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(`FROM services WHERE id=\?`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider_id", "title", "price", "availability_status", "created_at"}).
			AddRow(7, 2, "Leak repair", "75.50", "UNAVAILABLE", slot))

	s, err := NewServiceRepo(db).GetService(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, s.Available)
	assert.True(t, s.Price.Equal(decimal.RequireFromString("75.5")))
}
