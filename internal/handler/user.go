package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Infiora/infiora-backend/internal/auth"
	"github.com/Infiora/infiora-backend/internal/repository"
	"github.com/Infiora/infiora-backend/internal/utils"
)

// userOrderFields is the allow-list for the ?ordering= parameter on the user
// list endpoint. List interpolates the column name into SQL, so nothing
// outside this set may ever reach it.
var userOrderFields = map[string]bool{
	"username":   true,
	"email":      true,
	"created_at": true,
	"last_login": true,
}

// UserHandler serves the staff-gated user management endpoints.
type UserHandler struct {
	Users      UserStore
	Tokens     TokenLifecycle
	BcryptCost int
}

func NewUserHandler(users UserStore, tokens TokenLifecycle, bcryptCost int) *UserHandler {
	if users == nil || tokens == nil {
		panic("nil dependency passed to NewUserHandler")
	}
	return &UserHandler{Users: users, Tokens: tokens, BcryptCost: bcryptCost}
}

// userReq is the management create/update payload. Pointer fields
// distinguish absent from zero; password is write-only.
type userReq struct {
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Image           *string `json:"image"`
	IsActive        *bool   `json:"is_active"`
	IsStaff         *bool   `json:"is_staff"`
	IsSuperuser     *bool   `json:"is_superuser"`
	IsEmailVerified *bool   `json:"is_email_verified"`
}

// List returns one page of accounts visible to the actor. Staff see only
// accounts they created; admin sees all and may additionally filter by
// created_by.
func (h *UserHandler) List(c echo.Context) error {
	actor, role, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	page := parsePage(c)
	column, desc := utils.NormalizeOrdering(c.QueryParam("ordering"), "-created_at", userOrderFields)

	f := repository.UserListFilter{
		IsActive:        boolQuery(c, "is_active"),
		IsStaff:         boolQuery(c, "is_staff"),
		IsSuperuser:     boolQuery(c, "is_superuser"),
		IsEmailVerified: boolQuery(c, "is_email_verified"),
		Search:          strings.TrimSpace(c.QueryParam("search")),
		OrderColumn:     column,
		OrderDesc:       desc,
		Limit:           page.limit(),
		Offset:          page.offset(),
	}
	scope := auth.ScopeFor(role, actor.ID)
	if !scope.All {
		id := scope.CreatorID
		f.CreatorScope = &id
	} else {
		// Cross-creator filtering is meaningful only for admin; for staff
		// the scope already pins the creator.
		f.CreatedBy = uintQuery(c, "created_by")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	total, err := h.Users.Count(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	accounts, err := h.Users.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	items := make([]echo.Map, 0, len(accounts))
	for _, a := range accounts {
		hotels, err := h.Users.HotelIDs(ctx, a.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		items = append(items, userJSON(a, hotels))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":     total,
		"page":      page.Page,
		"page_size": page.PageSize,
		"items":     items,
	})
}

// Create provisions an account on behalf of the actor. The new row's
// created_by is always the actor; the payload cannot choose a different
// creator.
func (h *UserHandler) Create(c echo.Context) error {
	actor, _, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req userReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Username == nil || req.Email == nil || req.Password == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email and password are required"})
	}

	username := strings.TrimSpace(*req.Username)
	email := strings.ToLower(strings.TrimSpace(*req.Email))
	if err := utils.ValidateUsername(username); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := utils.ValidateEmail(email); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := utils.ValidatePassword(*req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	creator := actor.ID
	account := &repository.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedBy:    &creator,
	}
	if req.FirstName != nil {
		account.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		account.LastName = *req.LastName
	}
	if req.Image != nil {
		account.Image = *req.Image
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}
	if req.IsStaff != nil {
		account.IsStaff = *req.IsStaff
	}
	if req.IsSuperuser != nil {
		account.IsSuperuser = *req.IsSuperuser
	}
	if req.IsEmailVerified != nil {
		account.IsEmailVerified = *req.IsEmailVerified
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) || errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, userJSON(account, nil))
}

// fetchScoped loads the target account and applies the object-level check.
// A row outside the actor's scope gets the same 404 body as a missing row so
// staff cannot enumerate accounts they did not create.
func (h *UserHandler) fetchScoped(c echo.Context, ctx context.Context) (*repository.Account, error) {
	actor, role, err := getActor(c)
	if err != nil {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id, err := pathID(c)
	if err != nil {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !auth.CanAccessObject(role, actor.ID, target.CreatedBy) {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return target, nil
}

// Retrieve returns a single account in the actor's scope.
func (h *UserHandler) Retrieve(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.fetchScoped(c, ctx)
	if target == nil {
		return err
	}
	hotels, err := h.Users.HotelIDs(ctx, target.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userJSON(target, hotels))
}

// Update applies an update to an account in the actor's scope. PATCH is
// partial; PUT additionally requires the identity fields to be present.
// Absent optional fields stay as they are under both verbs, so neither can
// silently clear system-managed state. The self-protection rules stop an
// actor from locking themselves out.
func (h *UserHandler) Update(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.fetchScoped(c, ctx)
	if target == nil {
		return err
	}
	actor, _, _ := getActor(c)

	var req userReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if c.Request().Method == http.MethodPut && (req.Username == nil || req.Email == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and email are required"})
	}

	updated := *target
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if err := utils.ValidateUsername(name); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		updated.Username = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := utils.ValidateEmail(email); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		updated.Email = email
	}
	if req.FirstName != nil {
		updated.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		updated.LastName = *req.LastName
	}
	if req.Image != nil {
		updated.Image = *req.Image
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if req.IsStaff != nil {
		updated.IsStaff = *req.IsStaff
	}
	if req.IsSuperuser != nil {
		updated.IsSuperuser = *req.IsSuperuser
	}
	if req.IsEmailVerified != nil {
		updated.IsEmailVerified = *req.IsEmailVerified
	}
	// The write-only password is validated and hashed up front and rides in
	// the same UPDATE as every other field, so a failure can never commit
	// the field changes without the new credential.
	if req.Password != nil {
		if err := utils.ValidatePassword(*req.Password); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		updated.PasswordHash = hash
	}

	// Self-protection runs after field validation and before persistence:
	// an actor cannot lock themselves out of the management surface.
	if target.ID == actor.ID {
		if req.IsActive != nil && !*req.IsActive {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot deactivate your own account"})
		}
		if req.IsSuperuser != nil && !*req.IsSuperuser && target.IsSuperuser {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot remove superuser status from your own account"})
		}
		if req.IsStaff != nil && !*req.IsStaff && target.IsStaff {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot remove staff status from your own account"})
		}
	}

	if err := h.Users.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) || errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	hotels, err := h.Users.HotelIDs(ctx, updated.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userJSON(&updated, hotels))
}

// Delete removes an account in the actor's scope. Self-deletion is refused.
func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.fetchScoped(c, ctx)
	if target == nil {
		return err
	}
	actor, _, _ := getActor(c)
	if target.ID == actor.ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete your own account"})
	}
	if err := h.Users.Delete(ctx, target.ID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- flag actions -----

// Activate sets is_active on the target account.
func (h *UserHandler) Activate(c echo.Context) error {
	return h.setFlag(c, "is_active", true, "user activated successfully", "")
}

// Deactivate clears is_active. Refused on the actor's own account.
func (h *UserHandler) Deactivate(c echo.Context) error {
	return h.setFlag(c, "is_active", false, "user deactivated successfully", "cannot deactivate your own account")
}

// GrantStaff sets is_staff on the target account.
func (h *UserHandler) GrantStaff(c echo.Context) error {
	return h.setFlag(c, "is_staff", true, "staff status granted successfully", "")
}

// RevokeStaff clears is_staff. Refused on the actor's own account.
func (h *UserHandler) RevokeStaff(c echo.Context) error {
	return h.setFlag(c, "is_staff", false, "staff status revoked successfully", "cannot remove staff status from your own account")
}

func (h *UserHandler) setFlag(c echo.Context, flag string, value bool, okMsg, selfErr string) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.fetchScoped(c, ctx)
	if target == nil {
		return err
	}
	actor, _, _ := getActor(c)
	if selfErr != "" && target.ID == actor.ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": selfErr})
	}

	switch flag {
	case "is_active":
		target.IsActive = value
	case "is_staff":
		target.IsStaff = value
	}
	if err := h.Users.Update(ctx, target); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": okMsg})
}

// ResetPassword generates a random password for the target account, stores
// its hash and returns the plaintext exactly once. All of the target's
// sessions are revoked so the old credentials stop working everywhere.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.fetchScoped(c, ctx)
	if target == nil {
		return err
	}

	password, err := utils.GenerateRandomPassword(12)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	hash, err := utils.HashPassword(password, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	if err := h.Users.SetPassword(ctx, target.ID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	if err := h.Tokens.RevokeAll(ctx, target.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "password reset successfully",
		"password": password,
	})
}
