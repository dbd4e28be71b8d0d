// Package service coordinates the booking engine: it resolves
// collaborators, runs the conflict rule and the lifecycle inside ledger
// transactions, and emits events and metrics once a write commits.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/logger"
	"github.com/iliyamo/service-booking/internal/metrics"
	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/queue"
	"github.com/iliyamo/service-booking/internal/repository"
)

const tracerName = "github.com/iliyamo/service-booking/internal/service"

// CreateRequest is a customer's request for a new booking.
type CreateRequest struct {
	ServiceID       uint64
	RequestedAt     time.Time
	SpecialRequests string
	Address         string
	Phone           string
}

// Deps are the collaborators of BookingService.  Events, Metrics, Log, Now
// and NewID are optional.
type Deps struct {
	Ledger   booking.Ledger
	Services booking.ServiceLookup
	Users    booking.UserLookup
	Events   EventPublisher
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Now      func() time.Time
	NewID    func() string
}

// BookingService is the booking orchestrator.  It keeps no state between
// calls; the ledger is the only shared resource.
type BookingService struct {
	ledger    booking.Ledger
	services  booking.ServiceLookup
	users     booking.UserLookup
	events    EventPublisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
	newID     func() string
	checker   booking.ConflictChecker
	lifecycle booking.Lifecycle
	tracer    trace.Tracer
}

func NewBookingService(d Deps) *BookingService {
	s := &BookingService{
		ledger:   d.Ledger,
		services: d.Services,
		users:    d.Users,
		events:   d.Events,
		metrics:  d.Metrics,
		log:      logger.OrNop(d.Log),
		now:      d.Now,
		newID:    d.NewID,
		tracer:   otel.Tracer(tracerName),
	}
	if s.events == nil {
		s.events = NopPublisher{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// begin starts a span for op.  The returned finish function records err on
// the span and in metrics and adds op to err.
func (s *BookingService) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if *errp != nil {
			*errp = booking.WithOp(op, *errp)
			kind := booking.KindOf(*errp)
			s.metrics.Failure(op, string(kind))
			s.countConflict(*errp)
			span.SetStatus(codes.Error, string(kind))
			span.RecordError(*errp)
		}
		span.End()
	}
}

func (s *BookingService) countConflict(err error) {
	switch {
	case errors.Is(err, repository.ErrStaleRevision):
		s.metrics.Conflict("revision")
	case booking.IsKind(err, booking.KindConflict):
		s.metrics.Conflict("slot")
	}
}

func checkRevision(b model.Booking, expected int64) error {
	if expected != 0 && expected != b.Revision {
		return booking.Wrap(booking.KindConflict, "", repository.ErrStaleRevision,
			"booking was modified by another request, reload and retry")
	}
	return nil
}

// CreateBooking places a PENDING booking for the calling customer.  The
// total amount is the service price at this moment.  The slot check and
// the insert run in one transaction, and the ledger's unique slot key
// rejects anything that slips past the check.
func (s *BookingService) CreateBooking(ctx context.Context, p booking.Principal, req CreateRequest) (b model.Booking, err error) {
	const op = "service.CreateBooking"
	ctx, finish := s.begin(ctx, op, attribute.Int64("service.id", int64(req.ServiceID)))
	defer finish(&err)

	if !p.IsCustomer() {
		return model.Booking{}, booking.E(booking.KindForbidden, "", "only customers can create bookings")
	}
	now := model.StampTime(s.now())
	if err := validateRequestedAt("", req.RequestedAt, now); err != nil {
		return model.Booking{}, err
	}
	if err := validateContact("", req.SpecialRequests, req.Address, req.Phone); err != nil {
		return model.Booking{}, err
	}

	user, err := s.users.GetUser(ctx, p.ID)
	if err != nil {
		return model.Booking{}, err
	}
	if user.Role != model.RoleCustomer {
		return model.Booking{}, booking.E(booking.KindForbidden, "", "only customers can create bookings")
	}
	svc, err := s.services.GetService(ctx, req.ServiceID)
	if err != nil {
		return model.Booking{}, err
	}
	if !svc.Available {
		return model.Booking{}, booking.Ef(booking.KindInvalidState, "", "service %d is not available for booking", svc.ID)
	}

	b = model.Booking{
		ID:              s.newID(),
		CustomerID:      p.ID,
		ServiceID:       svc.ID,
		ProviderID:      svc.ProviderID,
		RequestedAt:     model.SlotTime(req.RequestedAt),
		SpecialRequests: req.SpecialRequests,
		Address:         req.Address,
		Phone:           req.Phone,
		TotalAmount:     svc.Price,
		Status:          model.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = s.ledger.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		if err := s.checker.Reserve(ctx, tx, b.ServiceID, b.RequestedAt, ""); err != nil {
			return err
		}
		return tx.Insert(ctx, &b)
	})
	if err != nil {
		if booking.IsKind(err, booking.KindConflict) {
			s.log.Warn("booking slot conflict",
				zap.Uint64("service_id", b.ServiceID), zap.Time("requested_at", b.RequestedAt))
		}
		return model.Booking{}, err
	}

	s.metrics.BookingCreated()
	s.log.Info("booking created",
		zap.String("booking_id", b.ID), zap.Uint64("customer_id", b.CustomerID),
		zap.Uint64("service_id", b.ServiceID), zap.String("total", b.TotalAmount.StringFixed(2)))
	s.publish(ctx, queue.EventCreated, b, "", p.ID, "")
	return b, nil
}

// GetBooking returns a booking to its customer or its provider.
func (s *BookingService) GetBooking(ctx context.Context, p booking.Principal, id string) (b model.Booking, err error) {
	const op = "service.GetBooking"
	ctx, finish := s.begin(ctx, op, attribute.String("booking.id", id))
	defer finish(&err)

	b, err = s.ledger.Get(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if !p.CanView(b) {
		return model.Booking{}, booking.E(booking.KindForbidden, "", "access denied")
	}
	return b, nil
}

// ListForCustomer returns the caller's bookings, newest first.
func (s *BookingService) ListForCustomer(ctx context.Context, p booking.Principal, status *model.Status) (out []model.Booking, err error) {
	const op = "service.ListForCustomer"
	ctx, finish := s.begin(ctx, op)
	defer finish(&err)

	if !p.IsCustomer() {
		return nil, booking.E(booking.KindForbidden, "", "customer role required")
	}
	return s.ledger.List(ctx, booking.PartyCustomer, p.ID, status)
}

// ListForProvider returns bookings on the caller's services, newest first.
func (s *BookingService) ListForProvider(ctx context.Context, p booking.Principal, status *model.Status) (out []model.Booking, err error) {
	const op = "service.ListForProvider"
	ctx, finish := s.begin(ctx, op)
	defer finish(&err)

	if !p.IsProvider() {
		return nil, booking.E(booking.KindForbidden, "", "provider role required")
	}
	return s.ledger.List(ctx, booking.PartyProvider, p.ID, status)
}

// ListUpcoming returns the caller's future PENDING and CONFIRMED
// bookings, earliest first.  Customers see what they booked; providers see
// what was booked on their services.
func (s *BookingService) ListUpcoming(ctx context.Context, p booking.Principal) (out []model.Booking, err error) {
	const op = "service.ListUpcoming"
	ctx, finish := s.begin(ctx, op)
	defer finish(&err)

	var party booking.Party
	switch {
	case p.IsCustomer():
		party = booking.PartyCustomer
	case p.IsProvider():
		party = booking.PartyProvider
	default:
		return nil, booking.E(booking.KindForbidden, "", "customer or provider role required")
	}
	return s.ledger.ListUpcoming(ctx, party, p.ID, s.now().UTC())
}

// ListAll returns every booking, oldest first.  Administrators only.
func (s *BookingService) ListAll(ctx context.Context, p booking.Principal) (out []model.Booking, err error) {
	const op = "service.ListAll"
	ctx, finish := s.begin(ctx, op)
	defer finish(&err)

	if !p.IsAdmin() {
		return nil, booking.E(booking.KindForbidden, "", "admin role required")
	}
	return s.ledger.All(ctx)
}

// UpdateBooking applies a partial edit to a PENDING booking owned by the
// caller.  expectedRevision is the revision the caller last saw, or 0 to
// skip that check; the write itself is always guarded by the revision read
// inside the transaction.
func (s *BookingService) UpdateBooking(ctx context.Context, p booking.Principal, id string, patch model.BookingPatch, expectedRevision int64) (b model.Booking, err error) {
	const op = "service.UpdateBooking"
	ctx, finish := s.begin(ctx, op, attribute.String("booking.id", id))
	defer finish(&err)

	if patch.Empty() {
		return model.Booking{}, booking.E(booking.KindValidation, "", "nothing to update")
	}
	now := model.StampTime(s.now())

	err = s.ledger.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !p.OwnsAsCustomer(current) {
			return booking.E(booking.KindForbidden, "", "only the booking's customer can edit it")
		}
		if err := checkRevision(current, expectedRevision); err != nil {
			return err
		}
		if current.Status != model.StatusPending {
			return booking.Ef(booking.KindInvalidState, "", "only PENDING bookings can be edited, booking is %s", current.Status)
		}

		next := current
		if patch.RequestedAt != nil {
			at := model.SlotTime(*patch.RequestedAt)
			if !at.Equal(current.RequestedAt) {
				if err := validateRequestedAt("", at, now); err != nil {
					return err
				}
				if err := s.checker.Reserve(ctx, tx, current.ServiceID, at, current.ID); err != nil {
					return err
				}
			}
			next.RequestedAt = at
		}
		if patch.SpecialRequests != nil {
			next.SpecialRequests = *patch.SpecialRequests
		}
		if patch.Address != nil {
			next.Address = *patch.Address
		}
		if patch.Phone != nil {
			next.Phone = *patch.Phone
		}
		if err := validateContact("", next.SpecialRequests, next.Address, next.Phone); err != nil {
			return err
		}
		next.UpdatedAt = now
		if err := tx.Update(ctx, &next, current.Revision); err != nil {
			return err
		}
		b = next
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.log.Info("booking updated", zap.String("booking_id", b.ID), zap.Int64("revision", b.Revision))
	s.publish(ctx, queue.EventUpdated, b, "", p.ID, "")
	return b, nil
}

// CancelBooking lets the customer cancel a PENDING or CONFIRMED booking.
func (s *BookingService) CancelBooking(ctx context.Context, p booking.Principal, id string, expectedRevision int64) (b model.Booking, err error) {
	const op = "service.CancelBooking"
	ctx, finish := s.begin(ctx, op, attribute.String("booking.id", id))
	defer finish(&err)

	var prev model.Status
	err = s.ledger.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !p.OwnsAsCustomer(current) {
			return booking.E(booking.KindForbidden, "", "only the booking's customer can cancel it")
		}
		if err := checkRevision(current, expectedRevision); err != nil {
			return err
		}
		if current.Status != model.StatusPending && current.Status != model.StatusConfirmed {
			return booking.Ef(booking.KindInvalidState, "", "cannot cancel a %s booking", current.Status)
		}
		next, err := s.lifecycle.Transition(current, model.StatusCancelled, p, model.StampTime(s.now()))
		if err != nil {
			return err
		}
		if err := tx.Update(ctx, &next, current.Revision); err != nil {
			return err
		}
		prev, b = current.Status, next
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.metrics.Transition(string(prev), string(b.Status))
	s.log.Info("booking cancelled", zap.String("booking_id", b.ID), zap.String("from", string(prev)))
	s.publish(ctx, queue.EventStatusChanged, b, prev, p.ID, "")
	return b, nil
}

// UpdateStatus moves a booking along the lifecycle on behalf of its
// provider.  notes travel with the emitted event and the log line only.
func (s *BookingService) UpdateStatus(ctx context.Context, p booking.Principal, id string, target model.Status, notes string, expectedRevision int64) (b model.Booking, err error) {
	const op = "service.UpdateStatus"
	ctx, finish := s.begin(ctx, op, attribute.String("booking.id", id), attribute.String("booking.target", string(target)))
	defer finish(&err)

	if err := validateText("", "notes", notes, maxNotes); err != nil {
		return model.Booking{}, err
	}

	var prev model.Status
	err = s.ledger.InTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !p.OwnsAsProvider(current) {
			return booking.E(booking.KindForbidden, "", "only the service's provider can change the status")
		}
		if err := checkRevision(current, expectedRevision); err != nil {
			return err
		}
		next, err := s.lifecycle.Transition(current, target, p, model.StampTime(s.now()))
		if err != nil {
			return err
		}
		if err := tx.Update(ctx, &next, current.Revision); err != nil {
			return err
		}
		prev, b = current.Status, next
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.metrics.Transition(string(prev), string(b.Status))
	s.log.Info("booking status changed",
		zap.String("booking_id", b.ID), zap.String("from", string(prev)), zap.String("to", string(b.Status)),
		zap.String("notes", notes))
	s.publish(ctx, queue.EventStatusChanged, b, prev, p.ID, notes)
	return b, nil
}

// publish emits an event for a committed write.  It outlives the request
// context so a client disconnect does not drop the event.
func (s *BookingService) publish(ctx context.Context, typ string, b model.Booking, prev model.Status, actor uint64, notes string) {
	ev := queue.BookingEvent{
		EventID:        uuid.NewString(),
		Type:           typ,
		BookingID:      b.ID,
		CustomerID:     b.CustomerID,
		ProviderID:     b.ProviderID,
		ServiceID:      b.ServiceID,
		Status:         string(b.Status),
		PreviousStatus: string(prev),
		Revision:       b.Revision,
		TotalAmount:    b.TotalAmount.StringFixed(2),
		RequestedAt:    b.RequestedAt,
		ActorID:        actor,
		Notes:          notes,
		OccurredAt:     b.UpdatedAt,
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.Warn("publish booking event failed",
			zap.String("booking_id", b.ID), zap.String("type", typ), zap.Error(err))
	}
}
