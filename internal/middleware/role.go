package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Infiora/infiora-backend/internal/auth"
)

// RequireStaff rejects actors below staff with 403. It assumes JWTAuth ran
// earlier and stored the derived role under CtxRole. Object-level ownership
// checks happen in the handlers; this gate only separates management traffic
// from regular accounts.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(auth.Role)
			if !ok || !auth.CanManage(role) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
