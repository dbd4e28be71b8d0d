package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-booking/internal/handler"
	"github.com/iliyamo/service-booking/internal/middleware"
	"github.com/iliyamo/service-booking/internal/model"
)

// RegisterBookings registers the booking endpoints under /v1/bookings.  All
// routes require a valid JWT.  Role guards sit on each route; ownership is
// checked by the orchestrator.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, r *handler.ReportHandler, jwtSecret string) {
	customer := middleware.RequireRole(model.RoleCustomer)
	provider := middleware.RequireRole(model.RoleProvider)
	party := middleware.RequireRole(model.RoleCustomer, model.RoleProvider)

	g := e.Group("/v1/bookings", middleware.JWTAuth(jwtSecret))

	g.POST("", h.Create, customer)
	g.GET("/customer", h.ListCustomer, customer)
	g.GET("/provider", h.ListProvider, provider)
	g.GET("/provider/stats", r.ProviderStats, provider)
	g.GET("/upcoming", h.Upcoming, party)

	// Static segments above win over :id.
	g.GET("/:id", h.Get, party)
	g.PATCH("/:id", h.Update, customer)
	g.POST("/:id/cancel", h.Cancel, customer)
	g.PUT("/:id/status", h.UpdateStatus, provider)
}
