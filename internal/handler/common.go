// Package handler contains the HTTP handlers: auth flows, user and hotel
// management and the health check.
package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Infiora/infiora-backend/internal/auth"
	"github.com/Infiora/infiora-backend/internal/middleware"
	"github.com/Infiora/infiora-backend/internal/repository"
)

// getActor extracts the authenticated account stored by the JWTAuth
// middleware. Handlers behind the middleware can rely on it being present;
// absence is a wiring bug surfaced as an error.
func getActor(c echo.Context) (*repository.Account, auth.Role, error) {
	actor, ok := c.Get(middleware.CtxActor).(*repository.Account)
	if !ok || actor == nil {
		return nil, auth.RoleRegular, errors.New("no actor in context")
	}
	role, ok := c.Get(middleware.CtxRole).(auth.Role)
	if !ok {
		role = auth.RoleOf(actor.IsStaff, actor.IsSuperuser)
	}
	return actor, role, nil
}

// pageParams holds normalized pagination query parameters.
type pageParams struct {
	Page     int
	PageSize int
}

func (p pageParams) limit() int  { return p.PageSize }
func (p pageParams) offset() int { return (p.Page - 1) * p.PageSize }

// parsePage reads page/page_size with a default size of 10 and a cap of 100.
func parsePage(c echo.Context) pageParams {
	p := pageParams{Page: 1, PageSize: 10}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && v > 0 {
		p.PageSize = v
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// boolQuery parses an optional boolean query parameter; nil means absent.
func boolQuery(c echo.Context, name string) *bool {
	v := strings.ToLower(strings.TrimSpace(c.QueryParam(name)))
	switch v {
	case "true", "1":
		b := true
		return &b
	case "false", "0":
		b := false
		return &b
	}
	return nil
}

// uintQuery parses an optional numeric query parameter; nil means absent or
// malformed.
func uintQuery(c echo.Context, name string) *uint64 {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// userJSON serializes an account for API responses. The password hash never
// leaves the server; hotels is the read-only membership list.
func userJSON(a *repository.Account, hotelIDs []uint64) echo.Map {
	if hotelIDs == nil {
		hotelIDs = []uint64{}
	}
	var createdBy any
	if a.CreatedBy != nil {
		createdBy = *a.CreatedBy
	}
	var lastLogin any
	if a.LastLogin != nil {
		lastLogin = a.LastLogin.UTC().Format(time.RFC3339)
	}
	return echo.Map{
		"id":                a.ID,
		"username":          a.Username,
		"email":             a.Email,
		"first_name":        a.FirstName,
		"last_name":         a.LastName,
		"image":             a.Image,
		"is_active":         a.IsActive,
		"is_staff":          a.IsStaff,
		"is_superuser":      a.IsSuperuser,
		"is_email_verified": a.IsEmailVerified,
		"created_by":        createdBy,
		"hotels":            hotelIDs,
		"last_login":        lastLogin,
		"created_at":        a.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":        a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// hotelJSON serializes a hotel for API responses.
func hotelJSON(h *repository.Hotel, userCount int) echo.Map {
	var createdBy any
	if h.CreatedBy != nil {
		createdBy = *h.CreatedBy
	}
	var activeUntil any
	if h.ActiveUntil != nil {
		activeUntil = h.ActiveUntil.UTC().Format(time.RFC3339)
	}
	links := h.SocialLinks
	if links == nil {
		links = map[string]string{}
	}
	return echo.Map{
		"id":           h.ID,
		"name":         h.Name,
		"description":  h.Description,
		"address":      h.Address,
		"phone":        h.Phone,
		"email":        h.Email,
		"website":      h.Website,
		"image":        h.Image,
		"cover":        h.Cover,
		"note":         h.Note,
		"active_until": activeUntil,
		"social_links": links,
		"is_active":    h.IsActive,
		"created_by":   createdBy,
		"user_count":   userCount,
		"created_at":   h.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":   h.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
