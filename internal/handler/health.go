package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is the liveness check used by load balancers.  It returns a plain
// "ok" whenever the process is serving.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// ReadinessHandler reports whether the ledger store and Redis answer.  A
// nil DB means the in-memory ledger is in use; a nil Redis client means
// caching and rate limiting are off.  Neither counts as a failure.
type ReadinessHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Ready handles GET /readyz.  Redis is reported but never fails readiness
// because the middleware that uses it degrades to pass-through.
func (h *ReadinessHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{"ledger": "memory", "redis": "disabled"}
	status := http.StatusOK
	if h.DB != nil {
		checks["ledger"] = "ok"
		if err := h.DB.PingContext(ctx); err != nil {
			checks["ledger"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if h.Redis != nil {
		checks["redis"] = "ok"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
		}
	}
	return c.JSON(status, checks)
}
