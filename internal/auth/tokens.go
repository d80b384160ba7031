package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Infiora/infiora-backend/internal/repository"
	"github.com/Infiora/infiora-backend/internal/utils"
)

// ErrTokenInvalid is the single error surfaced for every refresh-token
// validation failure: malformed, expired, revoked or unknown. Collapsing the
// causes keeps the endpoint from acting as an oracle for token state.
var ErrTokenInvalid = errors.New("token invalid or expired")

// TokenStore is the persistence contract for refresh-token state.
// *repository.TokenRepo implements it.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	// RevokeByHash is unconditional and idempotent; RevokeOutstanding
	// reports whether this caller flipped the outstanding row, which makes
	// it safe to use as a single-winner claim under concurrency.
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeOutstanding(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AccountSource loads token subjects. *repository.UserRepo implements it.
type AccountSource interface {
	GetByID(ctx context.Context, id uint64) (*repository.Account, error)
}

// Pair is an access/refresh token pair bound to one account.
type Pair struct {
	AccessToken string
	AccessExp   time.Time
	Refresh     string
	RefreshExp  time.Time
}

// TokenService manages the refresh-token lifecycle: issue, rotate, blacklist
// and one-shot consumption for the password-reset and email-verification
// flows. Tokens are HS256 JWTs; their server-side row (stored by hash) is the
// authoritative outstanding/blacklisted state.
type TokenService struct {
	tokens         TokenStore
	accounts       AccountSource
	secret         string
	accessTTLDays  int
	refreshTTLDays int
}

func NewTokenService(tokens TokenStore, accounts AccountSource, secret string, accessTTLDays, refreshTTLDays int) *TokenService {
	if tokens == nil || accounts == nil {
		panic("nil store passed to NewTokenService")
	}
	return &TokenService{
		tokens:         tokens,
		accounts:       accounts,
		secret:         secret,
		accessTTLDays:  accessTTLDays,
		refreshTTLDays: refreshTTLDays,
	}
}

// Issue mints a new access/refresh pair for the account and records the
// refresh token as outstanding. Pairs issued to the same account are
// independent sessions, each revocable on its own.
func (s *TokenService) Issue(ctx context.Context, a *repository.Account) (Pair, error) {
	access, err := utils.NewAccessToken(s.secret, a.ID, string(RoleOf(a.IsStaff, a.IsSuperuser)), s.accessTTLDays)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := utils.NewRefreshToken(s.secret, a.ID, s.refreshTTLDays)
	if err != nil {
		return Pair{}, err
	}
	if err := s.tokens.StoreRefresh(ctx, a.ID, utils.HashTokenRaw(refresh.Raw), refresh.Exp); err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken: access.Token,
		AccessExp:   access.Exp,
		Refresh:     refresh.Raw,
		RefreshExp:  refresh.Exp,
	}, nil
}

// validate checks signature, type, embedded expiry and the server-side row,
// returning the subject id and the token hash. Every failure is
// ErrTokenInvalid.
func (s *TokenService) validate(ctx context.Context, raw string) (uint64, string, error) {
	if _, err := utils.ParseToken(s.secret, raw, utils.TokenTypeRefresh); err != nil {
		return 0, "", ErrTokenInvalid
	}
	hash := utils.HashTokenRaw(raw)
	userID, err := s.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return 0, "", ErrTokenInvalid
	}
	return userID, hash, nil
}

// Rotate exchanges a valid refresh token for a brand-new pair. The old token
// is revoked before the new one is minted, so a crash mid-rotation leaves the
// old token unusable rather than two live tokens; replaying the old token
// always fails. The revoke must claim the outstanding row: two rotations
// racing on one token can both pass validation, but only the one whose
// conditional revoke lands mints a pair, the loser gets ErrTokenInvalid.
// An inactive or deleted subject still burns the token and yields
// ErrTokenInvalid.
func (s *TokenService) Rotate(ctx context.Context, raw string) (Pair, *repository.Account, error) {
	userID, hash, err := s.validate(ctx, raw)
	if err != nil {
		return Pair{}, nil, err
	}
	won, err := s.tokens.RevokeOutstanding(ctx, hash)
	if err != nil {
		return Pair{}, nil, err
	}
	if !won {
		return Pair{}, nil, ErrTokenInvalid
	}
	a, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Pair{}, nil, ErrTokenInvalid
		}
		return Pair{}, nil, err
	}
	if !a.IsActive {
		return Pair{}, nil, ErrTokenInvalid
	}
	pair, err := s.Issue(ctx, a)
	if err != nil {
		return Pair{}, nil, err
	}
	return pair, a, nil
}

// Blacklist revokes a refresh token. It is idempotent and deliberately
// forgiving: unparseable input and unknown or already-revoked tokens all
// succeed silently, so logout never leaks whether a session existed.
func (s *TokenService) Blacklist(ctx context.Context, raw string) error {
	if _, err := utils.ParseToken(s.secret, raw, utils.TokenTypeRefresh); err != nil {
		return nil
	}
	return s.tokens.RevokeByHash(ctx, utils.HashTokenRaw(raw))
}

// Consume validates a capability token, burns it and returns its subject.
// The token is revoked before the caller applies the side effect (password
// change, verification flag), so a failure mid-flow fails closed: the token
// is gone and the action simply did not happen. The burn claims the
// outstanding row the same way Rotate does, so concurrent consumes of one
// token apply the side effect at most once; the loser and any later replay
// fail with ErrTokenInvalid.
func (s *TokenService) Consume(ctx context.Context, raw string) (*repository.Account, error) {
	userID, hash, err := s.validate(ctx, raw)
	if err != nil {
		return nil, err
	}
	won, err := s.tokens.RevokeOutstanding(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrTokenInvalid
	}
	a, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if !a.IsActive {
		return nil, ErrTokenInvalid
	}
	return a, nil
}

// RevokeAll ends every session of one account (logout-all).
func (s *TokenService) RevokeAll(ctx context.Context, userID uint64) error {
	return s.tokens.RevokeAllForUser(ctx, userID)
}
