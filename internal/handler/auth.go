package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Infiora/infiora-backend/internal/auth"
	"github.com/Infiora/infiora-backend/internal/queue"
	"github.com/Infiora/infiora-backend/internal/repository"
	"github.com/Infiora/infiora-backend/internal/utils"
)

const dbTimeout = 5 * time.Second

// AuthHandler bundles dependencies for the authentication and profile
// endpoints.
type AuthHandler struct {
	Users      UserStore
	Tokens     TokenLifecycle
	Publish    EmailPublisher
	BcryptCost int
}

func NewAuthHandler(users UserStore, tokens TokenLifecycle, publish EmailPublisher, bcryptCost int) *AuthHandler {
	if users == nil || tokens == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{Users: users, Tokens: tokens, Publish: publish, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type emailReq struct {
	Email string `json:"email"`
}
type resetPasswordReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
type verifyEmailReq struct {
	Token string `json:"token"`
}

// profileReq is the self-service update payload. Pointer fields distinguish
// "absent" from "set to empty"; system-managed fields (flags, created_by,
// hotels, verification) have no counterpart here and cannot be written
// through this path.
type profileReq struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Image     *string `json:"image"`
}

// Register creates a self-service account with the minimal field set.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.ValidateUsername(req.Username); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	account := &repository.Account{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := h.Users.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) || errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "user registered successfully",
		"user_id":  account.ID,
		"username": account.Username,
		"email":    account.Email,
	})
}

// Login authenticates by username or email and returns a token pair plus a
// user summary. Unknown account, wrong password and deactivated account all
// produce the same 401 so the response never hints which part was wrong.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "login and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	account, err := h.Users.GetByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(account.PasswordHash, req.Password) || !account.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	pair, err := h.Tokens.Issue(ctx, account)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	if err := h.Users.UpdateLastLogin(ctx, account.ID); err != nil {
		log.Printf("login: update last_login failed for user %d: %v", account.ID, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.Refresh,
		"user": echo.Map{
			"id":                account.ID,
			"username":          account.Username,
			"email":             account.Email,
			"is_email_verified": account.IsEmailVerified,
		},
	})
}

// Refresh rotates a refresh token: the submitted token is blacklisted and a
// brand-new pair is returned. Replaying the old token fails afterwards.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	pair, _, err := h.Tokens.Rotate(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrTokenInvalid.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.Refresh,
	})
}

// Logout blacklists the submitted refresh token. The response is
// success-shaped for any token value, valid or garbage, so the endpoint
// cannot be used to test whether a session exists.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Tokens.Blacklist(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user logged out successfully"})
}

// ForgotPassword issues a one-shot capability token for the account matching
// the email and queues the reset mail.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	account, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no user found with this email address"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	pair, err := h.Tokens.Issue(ctx, account)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	h.publishEmail(ctx, queue.EmailKindPasswordReset, account, pair.Refresh)

	return c.JSON(http.StatusOK, echo.Map{"message": "password reset email sent"})
}

// ResetPassword consumes a capability token and sets the new password. The
// token is burned on first use; a replay gets the uniform token error and
// the password is not touched again.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	account, err := h.Tokens.Consume(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrTokenInvalid.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}

	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	if err := h.Users.SetPassword(ctx, account.ID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset successfully"})
}

// SendVerificationEmail issues a capability token and queues the
// verification mail, unless the address is unknown or already verified.
func (h *AuthHandler) SendVerificationEmail(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	account, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no user found with this email address"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if account.IsEmailVerified {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already verified"})
	}

	pair, err := h.Tokens.Issue(ctx, account)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	h.publishEmail(ctx, queue.EmailKindVerifyEmail, account, pair.Refresh)

	return c.JSON(http.StatusOK, echo.Map{"message": "verification email sent"})
}

// VerifyEmail consumes a capability token and marks the subject's email as
// verified. One-shot like ResetPassword.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	account, err := h.Tokens.Consume(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrTokenInvalid.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}
	if err := h.Users.SetEmailVerified(ctx, account.ID, true); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified successfully"})
}

// Me returns the authenticated account's own profile.
func (h *AuthHandler) Me(c echo.Context) error {
	actor, _, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	hotels, err := h.Users.HotelIDs(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userJSON(actor, hotels))
}

// UpdateMe applies the restricted self-service field set. PATCH is partial;
// PUT additionally requires the identity fields. Fields absent from the
// payload are left untouched under both verbs, so a full update cannot
// silently clear system-managed fields.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	actor, _, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if c.Request().Method == http.MethodPut && (req.Username == nil || req.Email == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and email are required"})
	}

	updated := *actor
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

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) || errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	hotels, err := h.Users.HotelIDs(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userJSON(&updated, hotels))
}

// publishEmail hands the mail request to the broker. Delivery is best
// effort: a broker outage is logged and the caller's response is unaffected.
func (h *AuthHandler) publishEmail(ctx context.Context, kind string, a *repository.Account, token string) {
	if h.Publish == nil {
		return
	}
	ev := queue.EmailEvent{
		Kind:        kind,
		UserID:      a.ID,
		Username:    a.Username,
		Email:       a.Email,
		Token:       token,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.Publish(ctx, ev); err != nil {
		log.Printf("email publish failed (%s, user %d): %v", kind, a.ID, err)
	}
}
