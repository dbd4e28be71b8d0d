package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-booking/internal/model"
)

// RequireRole rejects callers whose role is not among roles with 403.
// It must run after JWTAuth; a request without a principal gets 401.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return unauthenticated(c, "authentication required")
			}
			if !allowed[p.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "role " + string(p.Role) + " may not call this endpoint"})
			}
			return next(c)
		}
	}
}
