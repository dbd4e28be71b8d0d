package middleware

// identity.go holds the helpers that expose the authenticated caller to
// handlers and to the other middleware.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-booking/internal/booking"
)

const principalKey = "principal"

// PrincipalFrom returns the caller resolved by JWTAuth.  ok is false on
// routes that are not behind JWTAuth.
func PrincipalFrom(c echo.Context) (booking.Principal, bool) {
	p, ok := c.Get(principalKey).(booking.Principal)
	return p, ok
}

// WithPrincipal stores p on c.  Tests use it to skip token handling.
func WithPrincipal(c echo.Context, p booking.Principal) {
	c.Set(principalKey, p)
}

// userID returns the caller's id as a string, or "anon" when nobody is
// authenticated.
func userID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return strconv.FormatUint(p.ID, 10)
	}
	return "anon"
}
