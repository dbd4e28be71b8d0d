package router // package router wires handlers and middleware onto an Echo instance

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/handler"
	"github.com/iliyamo/service-booking/internal/metrics"
	"github.com/iliyamo/service-booking/internal/middleware"
)

// Deps carries everything the routes need.  Cache and Limiter are the
// Redis middlewares; they pass requests through when Redis is off.
type Deps struct {
	Bookings  *handler.BookingHandler
	Reports   *handler.ReportHandler
	Ready     *handler.ReadinessHandler
	Metrics   *metrics.Metrics
	JWTSecret string
	Cache     echo.MiddlewareFunc
	Limiter   echo.MiddlewareFunc
	Log       *zap.Logger
}

// New builds the Echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())

	RegisterRoutes(e, d.Ready, d.Metrics)
	RegisterBookings(e, d.Bookings, d.Reports, d.JWTSecret)
	RegisterAdmin(e, d.Bookings, d.Reports, d.JWTSecret, d.Limiter, d.Cache)
	return e
}

// RegisterRoutes registers the routes that do not require authentication:
// liveness, readiness and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, ready *handler.ReadinessHandler, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready.Ready)
	}
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
