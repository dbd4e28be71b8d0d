package booking

import (
	"time"

	"github.com/iliyamo/service-booking/internal/model"
)

type edge struct{ from, to model.Status }

// actorRights is the authorization layer over the transition table.  It
// names which side of the booking may drive each legal edge.  Customers
// cannot cancel a booking that is already in progress.
var actorRights = map[edge]model.Role{
	{model.StatusPending, model.StatusConfirmed}:    model.RoleProvider,
	{model.StatusConfirmed, model.StatusInProgress}: model.RoleProvider,
	{model.StatusInProgress, model.StatusCompleted}: model.RoleProvider,
	{model.StatusInProgress, model.StatusCancelled}: model.RoleProvider,
	{model.StatusPending, model.StatusCancelled}:    model.RoleCustomer,
	{model.StatusConfirmed, model.StatusCancelled}:  model.RoleCustomer,
}

// Lifecycle validates and applies status transitions.  It holds no state
// and never touches the ledger.
type Lifecycle struct{}

// Check reports whether actor may move b to target without applying it.
// The table is consulted first so an illegal edge is reported as such
// even to an actor who would not be allowed to drive it anyway.
func (Lifecycle) Check(b model.Booking, target model.Status, actor Principal) error {
	if !target.Valid() {
		return Ef(KindValidation, "", "unknown status %q", target)
	}
	if !b.Status.CanTransitionTo(target) {
		return Ef(KindInvalidTransition, "", "cannot change status from %s to %s", b.Status, target)
	}
	switch actorRights[edge{b.Status, target}] {
	case model.RoleProvider:
		if actor.OwnsAsProvider(b) {
			return nil
		}
	case model.RoleCustomer:
		if actor.OwnsAsCustomer(b) {
			return nil
		}
	}
	return Ef(KindForbidden, "", "not allowed to change status from %s to %s", b.Status, target)
}

// Transition returns a copy of b moved to target.  Only the status and
// the modification time change; the caller persists the result.
func (l Lifecycle) Transition(b model.Booking, target model.Status, actor Principal, now time.Time) (model.Booking, error) {
	if err := l.Check(b, target, actor); err != nil {
		return model.Booking{}, err
	}
	next := b
	next.Status = target
	next.UpdatedAt = now.UTC()
	if next.UpdatedAt.Before(next.CreatedAt) {
		next.UpdatedAt = next.CreatedAt
	}
	return next, nil
}
