package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/service"
)

// ReportHandler serves provider statistics and the admin reports.
// RevenueDays and TopLimit are the defaults used when the query string
// does not override them.
type ReportHandler struct {
	Stats       *service.StatsService
	Log         *zap.Logger
	RevenueDays int
	TopLimit    int
}

func NewReportHandler(stats *service.StatsService, log *zap.Logger, revenueDays, topLimit int) *ReportHandler {
	if stats == nil {
		panic("nil stats service passed to NewReportHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportHandler{Stats: stats, Log: log, RevenueDays: revenueDays, TopLimit: topLimit}
}

type statsView struct {
	TotalBookings      int    `json:"total_bookings"`
	PendingBookings    int    `json:"pending_bookings"`
	ConfirmedBookings  int    `json:"confirmed_bookings"`
	InProgressBookings int    `json:"in_progress_bookings"`
	CompletedBookings  int    `json:"completed_bookings"`
	CancelledBookings  int    `json:"cancelled_bookings"`
	TotalRevenue       string `json:"total_revenue"`
	PendingRevenue     string `json:"pending_revenue"`
}

func statsViewOf(s model.BookingStats) statsView {
	return statsView{
		TotalBookings:      s.TotalBookings,
		PendingBookings:    s.PendingBookings,
		ConfirmedBookings:  s.ConfirmedBookings,
		InProgressBookings: s.InProgressBookings,
		CompletedBookings:  s.CompletedBookings,
		CancelledBookings:  s.CancelledBookings,
		TotalRevenue:       s.TotalRevenue.StringFixed(2),
		PendingRevenue:     s.PendingRevenue.StringFixed(2),
	}
}

type dailyRevenueView struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
}

// intQuery reads a positive integer query parameter, falling back to def
// when it is absent.
func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, booking.Ef(booking.KindValidation, "", "%s must be a positive integer", name)
	}
	return n, nil
}

// ProviderStats handles GET /v1/bookings/provider/stats.
func (h *ReportHandler) ProviderStats(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	st, err := h.Stats.ProviderStats(c.Request().Context(), p)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, statsViewOf(st))
}

// Overview handles GET /v1/admin/reports/overview.
func (h *ReportHandler) Overview(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	st, err := h.Stats.Overview(c.Request().Context(), p)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, statsViewOf(st))
}

// Revenue handles GET /v1/admin/reports/revenue?days=.
func (h *ReportHandler) Revenue(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	days, err := intQuery(c, "days", h.RevenueDays)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	rows, err := h.Stats.RevenueByDay(c.Request().Context(), p, days)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]dailyRevenueView, len(rows))
	for i, r := range rows {
		out[i] = dailyRevenueView{Date: r.Date.Format("2006-01-02"), Amount: r.Amount.StringFixed(2)}
	}
	return c.JSON(http.StatusOK, echo.Map{"days": days, "revenue": out})
}

// StatusDistribution handles GET /v1/admin/reports/status-distribution.
func (h *ReportHandler) StatusDistribution(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	rows, err := h.Stats.StatusDistribution(c.Request().Context(), p)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"distribution": rows})
}

// top runs one of the top-N reports with the limit from ?limit=.
func (h *ReportHandler) top(c echo.Context, run func(booking.Principal, int) (interface{}, error)) error {
	p, err := principal(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	limit, err := intQuery(c, "limit", h.TopLimit)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	rows, err := run(p, limit)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"limit": limit, "items": rows})
}

// TopServices handles GET /v1/admin/reports/top-services?limit=.
func (h *ReportHandler) TopServices(c echo.Context) error {
	return h.top(c, func(p booking.Principal, limit int) (interface{}, error) {
		return h.Stats.TopServices(c.Request().Context(), p, limit)
	})
}

// TopProviders handles GET /v1/admin/reports/top-providers?limit=.
func (h *ReportHandler) TopProviders(c echo.Context) error {
	return h.top(c, func(p booking.Principal, limit int) (interface{}, error) {
		return h.Stats.TopProviders(c.Request().Context(), p, limit)
	})
}

// TopCustomers handles GET /v1/admin/reports/top-customers?limit=.
func (h *ReportHandler) TopCustomers(c echo.Context) error {
	return h.top(c, func(p booking.Principal, limit int) (interface{}, error) {
		return h.Stats.TopCustomers(c.Request().Context(), p, limit)
	})
}
