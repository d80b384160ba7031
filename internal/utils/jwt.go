// Package utils provides helpers for token creation, hashing and input
// validation shared by the service layer and the HTTP handlers.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type markers carried in the "typ" claim. Access tokens authenticate
// requests; refresh tokens are exchanged for new pairs and double as one-shot
// capability tokens for password reset and email verification.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var errTokenClaims = errors.New("unexpected token claims")

// AccessToken is a signed JWT plus its expiry, returned to clients in the
// access_token field.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is a signed JWT plus its identifying claims. Raw goes back to
// the client; only the SHA-256 hash of Raw is persisted server-side.
type RefreshToken struct {
	Raw string
	JTI string
	Exp time.Time
}

// NewAccessToken builds and signs an HS256 JWT bound to the account id. The
// role claim mirrors the account's derived role at issue time; authorization
// decisions still re-load the account from the store on every request.
func NewAccessToken(secret string, accountID uint64, role string, ttlDays int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub":  accountID,
		"role": role,
		"typ":  TokenTypeAccess,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs an HS256 refresh JWT. The jti claim makes
// every token unique even for the same account and instant, so concurrent
// sessions stay independently revocable.
func NewRefreshToken(secret string, accountID uint64, ttlDays int) (RefreshToken, error) {
	jti, err := randomHex(16)
	if err != nil {
		return RefreshToken{}, err
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub": accountID,
		"jti": jti,
		"typ": TokenTypeRefresh,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: signed, JTI: jti, Exp: exp}, nil
}

// ParseToken verifies the signature, expiry and "typ" claim of a token and
// returns the subject account id. Any failure is returned as-is; callers that
// must not leak the failure cause collapse it into a single error.
func ParseToken(secret, raw, wantType string) (uint64, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = jwt.ErrTokenUnverifiable
		}
		return 0, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errTokenClaims
	}
	if typ, _ := claims["typ"].(string); typ != wantType {
		return 0, errTokenClaims
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, errTokenClaims
	}
	return uint64(sub), nil
}

// HashTokenRaw returns the SHA-256 hash of a raw token as a hex string.
// Storing only the hash keeps stolen database rows from being replayed as
// live sessions.
func HashTokenRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns n bytes of cryptographically secure random data encoded
// as hex.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
