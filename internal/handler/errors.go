package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/booking"
)

// retryAfterSeconds is advertised on 503 responses for transient failures.
const retryAfterSeconds = "1"

// statusFor maps an error kind to its HTTP status code.
func statusFor(kind booking.Kind) int {
	switch kind {
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindInvalidState, booking.KindInvalidTransition, booking.KindConflict:
		return http.StatusConflict
	case booking.KindTransient:
		return http.StatusServiceUnavailable
	case booking.KindValidation:
		return http.StatusBadRequest
	case booking.KindUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": kind, "message": detail}.  Internal
// errors are logged and not described to the client.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	kind := booking.KindOf(err)
	status := statusFor(kind)
	msg := booking.DetailOf(err)
	switch status {
	case http.StatusInternalServerError:
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		kind, msg = booking.KindInternal, "internal error"
	case http.StatusServiceUnavailable:
		c.Response().Header().Set("Retry-After", retryAfterSeconds)
	}
	return c.JSON(status, echo.Map{"error": string(kind), "message": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": string(booking.KindValidation), "message": msg})
}
