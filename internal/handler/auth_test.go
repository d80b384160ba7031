package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Infiora/infiora-backend/internal/queue"
	"github.com/Infiora/infiora-backend/internal/utils"
)

func newAuthFixture(t *testing.T) (*AuthHandler, *fakeUsers, *fakeTokens, *[]queue.EmailEvent) {
	t.Helper()
	users := newFakeUsers()
	tokens := newFakeTokens(users)
	var published []queue.EmailEvent
	publish := func(_ context.Context, ev queue.EmailEvent) error {
		published = append(published, ev)
		return nil
	}
	return NewAuthHandler(users, tokens, publish, testCost), users, tokens, &published
}

func TestRegister(t *testing.T) {
	h, users, _, _ := newAuthFixture(t)

	rec, body := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"secret99"}`, nil)
	requireStatus(t, rec, http.StatusCreated)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")

	// The stored row has a hash, not the plaintext.
	stored, err := users.GetByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "secret99", stored.PasswordHash)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "secret99"))
	assert.Nil(t, stored.CreatedBy)
}

func TestRegisterValidation(t *testing.T) {
	h, _, _, _ := newAuthFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"weak password", `{"username":"bob","email":"bob@example.com","password":"short"}`},
		{"bad email", `{"username":"bob","email":"nope","password":"secret99"}`},
		{"bad username", `{"username":"has space","email":"bob@example.com","password":"secret99"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register", tt.body, nil)
			requireStatus(t, rec, http.StatusBadRequest)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	h, users, _, _ := newAuthFixture(t)
	seedAccount(t, users, "alice", false, false, nil)

	rec, body := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","email":"other@example.com","password":"secret99"}`, nil)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, body["error"], "username")
}

func TestLogin(t *testing.T) {
	h, users, _, _ := newAuthFixture(t)
	seedAccount(t, users, "alice", false, false, nil)

	// Username and email both work as the login value.
	for _, login := range []string{"alice", "alice@example.com"} {
		rec, body := doJSON(t, h.Login, http.MethodPost, "/v1/auth/login",
			`{"login":"`+login+`","password":"password1"}`, nil)
		requireStatus(t, rec, http.StatusOK)
		assert.NotEmpty(t, body["access_token"])
		assert.NotEmpty(t, body["refresh_token"])
		user := body["user"].(map[string]any)
		assert.Equal(t, "alice", user["username"])
	}

	stored, _ := users.GetByLogin(context.Background(), "alice")
	assert.NotNil(t, stored.LastLogin)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	h, users, _, _ := newAuthFixture(t)
	seedAccount(t, users, "alice", false, false, nil)
	inactive := seedAccount(t, users, "carol", false, false, nil)
	inactive.IsActive = false

	tests := []struct {
		name string
		body string
	}{
		{"unknown account", `{"login":"nobody","password":"password1"}`},
		{"wrong password", `{"login":"alice","password":"wrongpass1"}`},
		{"inactive account", `{"login":"carol","password":"password1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doJSON(t, h.Login, http.MethodPost, "/v1/auth/login", tt.body, nil)
			requireStatus(t, rec, http.StatusUnauthorized)
			assert.Equal(t, "invalid credentials", body["error"])
		})
	}
}

func TestRefreshRotates(t *testing.T) {
	h, users, tokens, _ := newAuthFixture(t)
	alice := seedAccount(t, users, "alice", false, false, nil)

	pair, err := tokens.Issue(context.Background(), alice)
	require.NoError(t, err)

	rec, body := doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+pair.Refresh+`"}`, nil)
	requireStatus(t, rec, http.StatusOK)
	assert.NotEqual(t, pair.Refresh, body["refresh_token"])

	// The submitted token is dead after rotation.
	rec, _ = doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+pair.Refresh+`"}`, nil)
	requireStatus(t, rec, http.StatusUnauthorized)
}

func TestRefreshRequiresToken(t *testing.T) {
	h, _, _, _ := newAuthFixture(t)
	rec, _ := doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", `{}`, nil)
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestLogout(t *testing.T) {
	h, users, tokens, _ := newAuthFixture(t)
	alice := seedAccount(t, users, "alice", false, false, nil)
	pair, err := tokens.Issue(context.Background(), alice)
	require.NoError(t, err)

	rec, _ := doJSON(t, h.Logout, http.MethodPost, "/v1/auth/logout",
		`{"refresh_token":"`+pair.Refresh+`"}`, nil)
	requireStatus(t, rec, http.StatusOK)

	// Logout is success-shaped even for garbage and for repeats.
	rec, _ = doJSON(t, h.Logout, http.MethodPost, "/v1/auth/logout",
		`{"refresh_token":"`+pair.Refresh+`"}`, nil)
	requireStatus(t, rec, http.StatusOK)
	rec, _ = doJSON(t, h.Logout, http.MethodPost, "/v1/auth/logout",
		`{"refresh_token":"garbage"}`, nil)
	requireStatus(t, rec, http.StatusOK)

	// But an empty token is a 400.
	rec, _ = doJSON(t, h.Logout, http.MethodPost, "/v1/auth/logout", `{}`, nil)
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestForgotPassword(t *testing.T) {
	h, users, _, published := newAuthFixture(t)
	seedAccount(t, users, "alice", false, false, nil)

	rec, _ := doJSON(t, h.ForgotPassword, http.MethodPost, "/v1/auth/forgot-password",
		`{"email":"alice@example.com"}`, nil)
	requireStatus(t, rec, http.StatusOK)
	require.Len(t, *published, 1)
	ev := (*published)[0]
	assert.Equal(t, queue.EmailKindPasswordReset, ev.Kind)
	assert.NotEmpty(t, ev.Token)

	rec, body := doJSON(t, h.ForgotPassword, http.MethodPost, "/v1/auth/forgot-password",
		`{"email":"nobody@example.com"}`, nil)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, body["error"], "no user found")
}

func TestResetPasswordIsOneShot(t *testing.T) {
	h, users, _, published := newAuthFixture(t)
	seedAccount(t, users, "alice", false, false, nil)

	rec, _ := doJSON(t, h.ForgotPassword, http.MethodPost, "/v1/auth/forgot-password",
		`{"email":"alice@example.com"}`, nil)
	requireStatus(t, rec, http.StatusOK)
	token := (*published)[0].Token

	rec, _ = doJSON(t, h.ResetPassword, http.MethodPost, "/v1/auth/reset-password",
		`{"token":"`+token+`","password":"newpass99"}`, nil)
	requireStatus(t, rec, http.StatusOK)

	stored, _ := users.GetByLogin(context.Background(), "alice")
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "newpass99"))

	// The token burned on first use.
	rec, _ = doJSON(t, h.ResetPassword, http.MethodPost, "/v1/auth/reset-password",
		`{"token":"`+token+`","password":"another99"}`, nil)
	requireStatus(t, rec, http.StatusUnauthorized)
	stored, _ = users.GetByLogin(context.Background(), "alice")
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "newpass99"))
}

func TestResetPasswordValidatesBeforeBurning(t *testing.T) {
	h, users, _, published := newAuthFixture(t)
	seedAccount(t, users, "alice", false, false, nil)

	rec, _ := doJSON(t, h.ForgotPassword, http.MethodPost, "/v1/auth/forgot-password",
		`{"email":"alice@example.com"}`, nil)
	requireStatus(t, rec, http.StatusOK)
	token := (*published)[0].Token

	// A weak password is rejected before the token is consumed, so the
	// token still works afterwards.
	rec, _ = doJSON(t, h.ResetPassword, http.MethodPost, "/v1/auth/reset-password",
		`{"token":"`+token+`","password":"short"}`, nil)
	requireStatus(t, rec, http.StatusBadRequest)

	rec, _ = doJSON(t, h.ResetPassword, http.MethodPost, "/v1/auth/reset-password",
		`{"token":"`+token+`","password":"newpass99"}`, nil)
	requireStatus(t, rec, http.StatusOK)
}

func TestEmailVerificationFlow(t *testing.T) {
	h, users, _, published := newAuthFixture(t)
	alice := seedAccount(t, users, "alice", false, false, nil)
	require.False(t, alice.IsEmailVerified)

	rec, _ := doJSON(t, h.SendVerificationEmail, http.MethodPost, "/v1/auth/send-verification-email",
		`{"email":"alice@example.com"}`, nil)
	requireStatus(t, rec, http.StatusOK)
	require.Len(t, *published, 1)
	assert.Equal(t, queue.EmailKindVerifyEmail, (*published)[0].Kind)

	rec, _ = doJSON(t, h.VerifyEmail, http.MethodPost, "/v1/auth/verify-email",
		`{"token":"`+(*published)[0].Token+`"}`, nil)
	requireStatus(t, rec, http.StatusOK)

	stored, _ := users.GetByLogin(context.Background(), "alice")
	assert.True(t, stored.IsEmailVerified)

	// A verified address cannot request another mail.
	rec, body := doJSON(t, h.SendVerificationEmail, http.MethodPost, "/v1/auth/send-verification-email",
		`{"email":"alice@example.com"}`, nil)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "email already verified", body["error"])
}

func TestMe(t *testing.T) {
	h, users, _, _ := newAuthFixture(t)
	alice := seedAccount(t, users, "alice", false, false, nil)
	users.hotelIDs[alice.ID] = []uint64{3, 5}

	rec, body := doJSON(t, h.Me, http.MethodGet, "/v1/me", "", alice)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "alice", body["username"])
	assert.Len(t, body["hotels"], 2)
	assert.NotContains(t, body, "password_hash")
}

func TestUpdateMe(t *testing.T) {
	h, users, _, _ := newAuthFixture(t)
	alice := seedAccount(t, users, "alice", false, false, nil)

	rec, body := doJSON(t, h.UpdateMe, http.MethodPatch, "/v1/me",
		`{"first_name":"Alice","image":"avatar.png"}`, alice)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "Alice", body["first_name"])
	assert.Equal(t, "avatar.png", body["image"])
	// Absent fields survive untouched.
	assert.Equal(t, "alice", body["username"])
}

func TestUpdateMeCannotEscalate(t *testing.T) {
	h, users, _, _ := newAuthFixture(t)
	alice := seedAccount(t, users, "alice", false, false, nil)

	// Flag fields are not part of the self-service payload; sending them
	// changes nothing.
	rec, body := doJSON(t, h.UpdateMe, http.MethodPatch, "/v1/me",
		`{"is_staff":true,"is_superuser":true,"is_email_verified":true}`, alice)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, false, body["is_staff"])
	assert.Equal(t, false, body["is_superuser"])
	assert.Equal(t, false, body["is_email_verified"])
}

func TestUpdateMePutRequiresIdentityFields(t *testing.T) {
	h, users, _, _ := newAuthFixture(t)
	alice := seedAccount(t, users, "alice", false, false, nil)

	// PUT without the identity fields is rejected; the same body passes as
	// a PATCH.
	rec, body := doJSON(t, h.UpdateMe, http.MethodPut, "/v1/me",
		`{"first_name":"Alice"}`, alice)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "username and email are required", body["error"])

	rec, _ = doJSON(t, h.UpdateMe, http.MethodPatch, "/v1/me",
		`{"first_name":"Alice"}`, alice)
	requireStatus(t, rec, http.StatusOK)

	rec, body = doJSON(t, h.UpdateMe, http.MethodPut, "/v1/me",
		`{"username":"alice","email":"alice@example.com","first_name":"A"}`, alice)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "A", body["first_name"])
}

func TestUpdateMeDuplicateEmail(t *testing.T) {
	h, users, _, _ := newAuthFixture(t)
	alice := seedAccount(t, users, "alice", false, false, nil)
	seedAccount(t, users, "bob", false, false, nil)

	rec, body := doJSON(t, h.UpdateMe, http.MethodPatch, "/v1/me",
		`{"email":"bob@example.com"}`, alice)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, body["error"], "email")
}
