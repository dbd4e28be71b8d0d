package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/middleware"
	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/service"
)

const headerETag = "ETag"

// BookingHandler exposes the booking orchestrator over HTTP.  Routes are
// mounted behind JWTAuth, so every method can rely on a principal being
// present; the orchestrator performs the ownership checks.
type BookingHandler struct {
	Svc *service.BookingService
	Log *zap.Logger
}

// NewBookingHandler constructs a BookingHandler and panics if svc is nil.
func NewBookingHandler(svc *service.BookingService, log *zap.Logger) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Svc: svc, Log: log}
}

type createBookingRequest struct {
	ServiceID       uint64    `json:"service_id" validate:"required,gt=0"`
	RequestedAt     time.Time `json:"requested_at" validate:"required"`
	SpecialRequests string    `json:"special_requests" validate:"max=500"`
	Address         string    `json:"address" validate:"max=200"`
	Phone           string    `json:"phone" validate:"max=20"`
}

type updateBookingRequest struct {
	RequestedAt     *time.Time `json:"requested_at"`
	SpecialRequests *string    `json:"special_requests" validate:"omitempty,max=500"`
	Address         *string    `json:"address" validate:"omitempty,max=200"`
	Phone           *string    `json:"phone" validate:"omitempty,max=20"`
	Revision        int64      `json:"revision" validate:"gte=0"`
}

type statusRequest struct {
	Status   string `json:"status" validate:"required"`
	Notes    string `json:"notes" validate:"max=500"`
	Revision int64  `json:"revision" validate:"gte=0"`
}

type revisionRequest struct {
	Revision int64 `json:"revision" validate:"gte=0"`
}

// bookingView renders the amount with two decimals.
type bookingView struct {
	model.Booking
	TotalAmount string `json:"total_amount"`
}

func viewOf(b model.Booking) bookingView {
	return bookingView{Booking: b, TotalAmount: b.TotalAmount.StringFixed(2)}
}

func viewsOf(bs []model.Booking) []bookingView {
	out := make([]bookingView, len(bs))
	for i, b := range bs {
		out[i] = viewOf(b)
	}
	return out
}

// writeBooking answers with one booking and advertises its revision as
// the ETag, which clients echo back in If-Match.
func writeBooking(c echo.Context, status int, b model.Booking) error {
	c.Response().Header().Set(headerETag, strconv.Quote(strconv.FormatInt(b.Revision, 10)))
	return c.JSON(status, viewOf(b))
}

func principal(c echo.Context) (booking.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return booking.Principal{}, booking.E(booking.KindUnauthenticated, "", "authentication required")
	}
	return p, nil
}

// bind decodes and validates the request body into dst.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return booking.E(booking.KindValidation, "", "invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		return booking.E(booking.KindValidation, "", err.Error())
	}
	return nil
}

// expectedRevision prefers an If-Match header over the body's revision.
// Both "3" and the quoted ETag form are accepted.
func expectedRevision(c echo.Context, body int64) (int64, error) {
	h := strings.TrimSpace(c.Request().Header.Get("If-Match"))
	if h == "" {
		return body, nil
	}
	h = strings.Trim(strings.TrimPrefix(h, "W/"), `"`)
	rev, err := strconv.ParseInt(h, 10, 64)
	if err != nil || rev < 1 {
		return 0, booking.E(booking.KindValidation, "", "If-Match must carry a booking revision")
	}
	return rev, nil
}

func statusFilter(c echo.Context) (*model.Status, error) {
	raw := c.QueryParam("status")
	if raw == "" {
		return nil, nil
	}
	st, err := model.ParseStatus(raw)
	if err != nil {
		return nil, booking.Ef(booking.KindValidation, "", "unknown status %q", raw)
	}
	return &st, nil
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req createBookingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Svc.CreateBooking(c.Request().Context(), p, service.CreateRequest{
		ServiceID:       req.ServiceID,
		RequestedAt:     req.RequestedAt,
		SpecialRequests: req.SpecialRequests,
		Address:         req.Address,
		Phone:           req.Phone,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/bookings/"+b.ID)
	return writeBooking(c, http.StatusCreated, b)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Svc.GetBooking(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return writeBooking(c, http.StatusOK, b)
}

// Update handles PATCH /v1/bookings/:id.
func (h *BookingHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req updateBookingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	rev, err := expectedRevision(c, req.Revision)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	patch := model.BookingPatch{
		RequestedAt:     req.RequestedAt,
		SpecialRequests: req.SpecialRequests,
		Address:         req.Address,
		Phone:           req.Phone,
	}
	b, err := h.Svc.UpdateBooking(c.Request().Context(), p, c.Param("id"), patch, rev)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return writeBooking(c, http.StatusOK, b)
}

// Cancel handles POST /v1/bookings/:id/cancel.  The body is optional.
func (h *BookingHandler) Cancel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req revisionRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	rev, err := expectedRevision(c, req.Revision)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Svc.CancelBooking(c.Request().Context(), p, c.Param("id"), rev)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return writeBooking(c, http.StatusOK, b)
}

// UpdateStatus handles PUT /v1/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	target, err := model.ParseStatus(req.Status)
	if err != nil {
		return badRequest(c, "unknown status "+strconv.Quote(req.Status))
	}
	rev, err := expectedRevision(c, req.Revision)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Svc.UpdateStatus(c.Request().Context(), p, c.Param("id"), target, req.Notes, rev)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return writeBooking(c, http.StatusOK, b)
}

type listFunc func(echo.Context, booking.Principal) ([]model.Booking, error)

func (h *BookingHandler) list(c echo.Context, fn listFunc) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	bs, err := fn(c, p)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": viewsOf(bs), "count": len(bs)})
}

// ListCustomer handles GET /v1/bookings/customer?status=.
func (h *BookingHandler) ListCustomer(c echo.Context) error {
	return h.list(c, func(c echo.Context, p booking.Principal) ([]model.Booking, error) {
		st, err := statusFilter(c)
		if err != nil {
			return nil, err
		}
		return h.Svc.ListForCustomer(c.Request().Context(), p, st)
	})
}

// ListProvider handles GET /v1/bookings/provider?status=.
func (h *BookingHandler) ListProvider(c echo.Context) error {
	return h.list(c, func(c echo.Context, p booking.Principal) ([]model.Booking, error) {
		st, err := statusFilter(c)
		if err != nil {
			return nil, err
		}
		return h.Svc.ListForProvider(c.Request().Context(), p, st)
	})
}

// Upcoming handles GET /v1/bookings/upcoming.
func (h *BookingHandler) Upcoming(c echo.Context) error {
	return h.list(c, func(c echo.Context, p booking.Principal) ([]model.Booking, error) {
		return h.Svc.ListUpcoming(c.Request().Context(), p)
	})
}

// ListAll handles GET /v1/admin/bookings.
func (h *BookingHandler) ListAll(c echo.Context) error {
	return h.list(c, func(c echo.Context, p booking.Principal) ([]model.Booking, error) {
		return h.Svc.ListAll(c.Request().Context(), p)
	})
}
