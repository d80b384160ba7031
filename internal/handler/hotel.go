package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Infiora/infiora-backend/internal/auth"
	"github.com/Infiora/infiora-backend/internal/repository"
	"github.com/Infiora/infiora-backend/internal/utils"
)

// hotelOrderFields is the allow-list for ?ordering= on the hotel list.
var hotelOrderFields = map[string]bool{
	"name":       true,
	"created_at": true,
}

// HotelHandler serves the staff-gated hotel management endpoints.
type HotelHandler struct {
	Hotels HotelStore
}

func NewHotelHandler(hotels HotelStore) *HotelHandler {
	if hotels == nil {
		panic("nil dependency passed to NewHotelHandler")
	}
	return &HotelHandler{Hotels: hotels}
}

// hotelReq is the create/update payload. Pointer fields distinguish absent
// from zero so PATCH can clear a field explicitly.
type hotelReq struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Address     *string            `json:"address"`
	Phone       *string            `json:"phone"`
	Email       *string            `json:"email"`
	Website     *string            `json:"website"`
	Image       *string            `json:"image"`
	Cover       *string            `json:"cover"`
	Note        *string            `json:"note"`
	ActiveUntil *string            `json:"active_until"`
	SocialLinks *map[string]string `json:"social_links"`
	IsActive    *bool              `json:"is_active"`
}

// List returns one page of hotels visible to the actor, with the same
// creator scoping as the user list.
func (h *HotelHandler) List(c echo.Context) error {
	actor, role, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	page := parsePage(c)
	column, desc := utils.NormalizeOrdering(c.QueryParam("ordering"), "-created_at", hotelOrderFields)

	f := repository.HotelListFilter{
		IsActive:    boolQuery(c, "is_active"),
		Search:      strings.TrimSpace(c.QueryParam("search")),
		OrderColumn: column,
		OrderDesc:   desc,
		Limit:       page.limit(),
		Offset:      page.offset(),
	}
	scope := auth.ScopeFor(role, actor.ID)
	if !scope.All {
		id := scope.CreatorID
		f.CreatorScope = &id
	} else {
		f.CreatedBy = uintQuery(c, "created_by")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	total, err := h.Hotels.Count(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	hotels, err := h.Hotels.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	items := make([]echo.Map, 0, len(hotels))
	for _, hotel := range hotels {
		count, err := h.Hotels.UserCount(ctx, hotel.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		items = append(items, hotelJSON(hotel, count))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":     total,
		"page":      page.Page,
		"page_size": page.PageSize,
		"items":     items,
	})
}

// Create registers a hotel. The name must be unique case-insensitively
// across all creators; created_by is always the actor.
func (h *HotelHandler) Create(c echo.Context) error {
	actor, _, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req hotelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	name := strings.TrimSpace(*req.Name)

	creator := actor.ID
	hotel := &repository.Hotel{Name: name, IsActive: true, CreatedBy: &creator}
	if err := applyHotelFields(hotel, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	taken, err := h.Hotels.NameExists(ctx, name, 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if taken {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a hotel with this name already exists"})
	}
	if err := h.Hotels.Create(ctx, hotel); err != nil {
		if errors.Is(err, repository.ErrHotelNameExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "a hotel with this name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create hotel failed"})
	}
	return c.JSON(http.StatusCreated, hotelJSON(hotel, 0))
}

// fetchScoped loads the target hotel and applies the object-level check,
// masking out-of-scope rows as 404 exactly like the user handler.
func (h *HotelHandler) fetchScoped(c echo.Context, ctx context.Context) (*repository.Hotel, error) {
	actor, role, err := getActor(c)
	if err != nil {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathID(c)
	if err != nil {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "hotel not found"})
	}
	target, err := h.Hotels.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrHotelNotFound) {
			return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "hotel not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !auth.CanAccessObject(role, actor.ID, target.CreatedBy) {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "hotel not found"})
	}
	return target, nil
}

// Retrieve returns one hotel in the actor's scope.
func (h *HotelHandler) Retrieve(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.fetchScoped(c, ctx)
	if target == nil {
		return err
	}
	count, err := h.Hotels.UserCount(ctx, target.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, hotelJSON(target, count))
}

// Update applies an update to a hotel in the actor's scope. PATCH is
// partial; PUT additionally requires the name. Absent optional fields stay
// as they are under both verbs.
func (h *HotelHandler) Update(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.fetchScoped(c, ctx)
	if target == nil {
		return err
	}
	var req hotelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if c.Request().Method == http.MethodPut && req.Name == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	updated := *target
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
		}
		taken, err := h.Hotels.NameExists(ctx, name, target.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if taken {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "a hotel with this name already exists"})
		}
		updated.Name = name
	}
	if err := applyHotelFields(&updated, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.Hotels.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrHotelNameExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "a hotel with this name already exists"})
		}
		if errors.Is(err, repository.ErrHotelNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hotel not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	count, err := h.Hotels.UserCount(ctx, updated.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, hotelJSON(&updated, count))
}

// Delete removes a hotel in the actor's scope, memberships included.
func (h *HotelHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.fetchScoped(c, ctx)
	if target == nil {
		return err
	}
	if err := h.Hotels.Delete(ctx, target.ID); err != nil {
		if errors.Is(err, repository.ErrHotelNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hotel not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// applyHotelFields copies provided optional fields onto the hotel, running
// the social-links allow-list and active_until parsing.
func applyHotelFields(hotel *repository.Hotel, req *hotelReq) error {
	if req.Description != nil {
		hotel.Description = *req.Description
	}
	if req.Address != nil {
		hotel.Address = *req.Address
	}
	if req.Phone != nil {
		hotel.Phone = *req.Phone
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" {
			if err := utils.ValidateEmail(email); err != nil {
				return err
			}
		}
		hotel.Email = email
	}
	if req.Website != nil {
		hotel.Website = *req.Website
	}
	if req.Image != nil {
		hotel.Image = *req.Image
	}
	if req.Cover != nil {
		hotel.Cover = *req.Cover
	}
	if req.Note != nil {
		hotel.Note = *req.Note
	}
	if req.ActiveUntil != nil {
		if *req.ActiveUntil == "" {
			hotel.ActiveUntil = nil
		} else {
			t, err := time.Parse(time.RFC3339, *req.ActiveUntil)
			if err != nil {
				return errors.New("active_until must be an RFC 3339 timestamp")
			}
			hotel.ActiveUntil = &t
		}
	}
	if req.SocialLinks != nil {
		if err := utils.ValidateSocialLinks(*req.SocialLinks); err != nil {
			return err
		}
		hotel.SocialLinks = *req.SocialLinks
	}
	if req.IsActive != nil {
		hotel.IsActive = *req.IsActive
	}
	return nil
}
