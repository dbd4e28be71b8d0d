package middleware // reusable HTTP middleware for the booking API

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-booking/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued by the identity service and stores the resolved principal in the
// request context.  Handlers read it with PrincipalFrom.  Requests without
// a usable token are answered with 401 before any handler runs.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthenticated(c, "missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			p, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return unauthenticated(c, "invalid token")
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": msg})
}
