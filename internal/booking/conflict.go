package booking

import (
	"context"
	"time"

	"github.com/iliyamo/service-booking/internal/model"
)

// ConflictChecker applies the slot rule: a service holds at most one
// active booking per exact instant.  There is no duration model; bookings
// one second apart never collide.
type ConflictChecker struct{}

// HasConflict reports whether the slot (serviceID, at) is taken by an
// active booking other than excludeID.  Call it with a Tx so the answer
// stays valid until the write that depends on it commits.
func (ConflictChecker) HasConflict(ctx context.Context, r SlotReader, serviceID uint64, at time.Time, excludeID string) (bool, error) {
	return r.HasActiveBooking(ctx, serviceID, model.SlotTime(at), excludeID)
}

// Reserve returns a conflict error when the slot is taken.
func (c ConflictChecker) Reserve(ctx context.Context, r SlotReader, serviceID uint64, at time.Time, excludeID string) error {
	taken, err := c.HasConflict(ctx, r, serviceID, at, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return Ef(KindConflict, "", "service %d is already booked at %s", serviceID, model.SlotTime(at).Format(time.RFC3339))
	}
	return nil
}
