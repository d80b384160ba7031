// Package router wires the HTTP surface: the public auth group, the
// authenticated profile endpoints and the staff-gated management endpoints.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Infiora/infiora-backend/internal/auth"
	"github.com/Infiora/infiora-backend/internal/handler"
	"github.com/Infiora/infiora-backend/internal/middleware"
)

// Deps carries everything route registration needs.
type Deps struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Hotels    *handler.HotelHandler
	JWTSecret string
	Accounts  auth.AccountSource
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the /v1 route tree.
func RegisterAPI(e *echo.Echo, d Deps) {
	// Public auth operations. The rate limiter sits only on this group:
	// these endpoints accept credential and token guesses.
	pub := e.Group("/v1/auth")
	if d.RateLimit != nil {
		pub.Use(d.RateLimit)
	}
	pub.POST("/register", d.Auth.Register)
	pub.POST("/login", d.Auth.Login)
	pub.POST("/refresh", d.Auth.Refresh)
	pub.POST("/logout", d.Auth.Logout)
	pub.POST("/forgot-password", d.Auth.ForgotPassword)
	pub.POST("/reset-password", d.Auth.ResetPassword)
	pub.POST("/send-verification-email", d.Auth.SendVerificationEmail)
	pub.POST("/verify-email", d.Auth.VerifyEmail)

	// Everything below requires a live access token and an active account.
	api := e.Group("/v1")
	api.Use(middleware.JWTAuth(d.JWTSecret, d.Accounts))

	api.GET("/me", d.Auth.Me)
	api.PUT("/me", d.Auth.UpdateMe)
	api.PATCH("/me", d.Auth.UpdateMe)

	// Management endpoints are reachable by staff and admin only; object
	// visibility inside them is further narrowed per creator.
	users := api.Group("/users", middleware.RequireStaff())
	users.GET("", d.Users.List)
	users.POST("", d.Users.Create)
	users.GET("/:id", d.Users.Retrieve)
	users.PUT("/:id", d.Users.Update)
	users.PATCH("/:id", d.Users.Update)
	users.DELETE("/:id", d.Users.Delete)
	users.POST("/:id/activate", d.Users.Activate)
	users.POST("/:id/deactivate", d.Users.Deactivate)
	users.POST("/:id/grant-staff", d.Users.GrantStaff)
	users.POST("/:id/revoke-staff", d.Users.RevokeStaff)
	users.POST("/:id/reset-password", d.Users.ResetPassword)

	hotels := api.Group("/hotels", middleware.RequireStaff())
	hotels.GET("", d.Hotels.List)
	hotels.POST("", d.Hotels.Create)
	hotels.GET("/:id", d.Hotels.Retrieve)
	hotels.PUT("/:id", d.Hotels.Update)
	hotels.PATCH("/:id", d.Hotels.Update)
	hotels.DELETE("/:id", d.Hotels.Delete)
}
