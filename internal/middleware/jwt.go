// Package middleware provides reusable HTTP middleware: bearer-token
// authentication, role gates and Redis-backed rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Infiora/infiora-backend/internal/auth"
	"github.com/Infiora/infiora-backend/internal/utils"
)

// Context keys set by JWTAuth for downstream middleware and handlers.
const (
	CtxActor = "actor" // *repository.Account
	CtxRole  = "role"  // auth.Role
)

// JWTAuth validates a Bearer access token and loads the subject account from
// the store, so deactivated or deleted accounts are rejected immediately even
// while their tokens are unexpired. Nothing about the decision is cached
// between requests. The actor and its derived role are stored in the Echo
// context under CtxActor / CtxRole.
func JWTAuth(secret string, accounts auth.AccountSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			accountID, err := utils.ParseToken(secret, raw, utils.TokenTypeAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token invalid or expired"})
			}
			actor, err := accounts.GetByID(c.Request().Context(), accountID)
			if err != nil || !actor.IsActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token invalid or expired"})
			}

			c.Set(CtxActor, actor)
			c.Set(CtxRole, auth.RoleOf(actor.IsStaff, actor.IsSuperuser))
			return next(c)
		}
	}
}
