// Package repository implements the booking ledger and the read-only
// collaborator lookups.  MySQL is the production store; the in-memory
// ledger backs local runs and tests.  Sentinel values are wrapped into
// typed booking errors so handlers can map them to HTTP responses while
// callers can still match the sentinel with errors.Is.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/service-booking/internal/booking"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrStaleRevision is returned when an update targets a revision that
// another writer has already advanced.
var ErrStaleRevision = errors.New("stale revision")

// ErrSlotTaken is returned when the store's active-slot uniqueness key
// rejects a write.
var ErrSlotTaken = errors.New("slot already booked")

// MySQL server error numbers the ledger reacts to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// classify converts a driver error into a typed booking error.  Lock
// timeouts, deadlocks, dropped connections and expired deadlines are
// transient; a duplicate on the slot key is a conflict.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *booking.Error
	if errors.As(err, &be) {
		return booking.WithOp(op, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return booking.Wrap(booking.KindNotFound, op, ErrNotFound, "")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return booking.Wrap(booking.KindTransient, op, err, "store unavailable, retry")
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return booking.Wrap(booking.KindConflict, op, ErrSlotTaken, "slot already booked")
		case mysqlLockWaitTimeout, mysqlDeadlock:
			return booking.Wrap(booking.KindTransient, op, err, "store busy, retry")
		}
	}
	return booking.Wrap(booking.KindInternal, op, err, "")
}

// lockContention reports whether InnoDB aborted the statement behind err
// with a deadlock or a lock wait timeout.
func lockContention(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
}
