package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-booking/internal/handler"
	"github.com/iliyamo/service-booking/internal/middleware"
	"github.com/iliyamo/service-booking/internal/model"
)

// RegisterAdmin registers ADMIN-only endpoints under /v1/admin.  Every
// admin request is rate limited; the report endpoints are also served
// from the response cache.
func RegisterAdmin(e *echo.Echo, h *handler.BookingHandler, r *handler.ReportHandler, jwtSecret string, limiter, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	if limiter != nil {
		g.Use(limiter)
	}
	g.GET("/bookings", h.ListAll)

	reports := g.Group("/reports")
	if cache != nil {
		reports.Use(cache)
	}
	reports.GET("/overview", r.Overview)
	reports.GET("/revenue", r.Revenue)
	reports.GET("/status-distribution", r.StatusDistribution)
	reports.GET("/top-services", r.TopServices)
	reports.GET("/top-providers", r.TopProviders)
	reports.GET("/top-customers", r.TopCustomers)
}
