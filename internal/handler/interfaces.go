package handler

import (
	"context"

	"github.com/Infiora/infiora-backend/internal/auth"
	"github.com/Infiora/infiora-backend/internal/queue"
	"github.com/Infiora/infiora-backend/internal/repository"
)

// Store contracts consumed by the handlers. The repository types satisfy
// them; tests substitute in-memory fakes.

// UserStore is the account persistence contract.
type UserStore interface {
	Create(ctx context.Context, a *repository.Account) error
	GetByID(ctx context.Context, id uint64) (*repository.Account, error)
	GetByLogin(ctx context.Context, login string) (*repository.Account, error)
	GetByEmail(ctx context.Context, email string) (*repository.Account, error)
	Update(ctx context.Context, a *repository.Account) error
	SetPassword(ctx context.Context, id uint64, hash string) error
	SetEmailVerified(ctx context.Context, id uint64, verified bool) error
	UpdateLastLogin(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
	HotelIDs(ctx context.Context, accountID uint64) ([]uint64, error)
	Count(ctx context.Context, f repository.UserListFilter) (int, error)
	List(ctx context.Context, f repository.UserListFilter) ([]*repository.Account, error)
}

// HotelStore is the hotel persistence contract.
type HotelStore interface {
	Create(ctx context.Context, h *repository.Hotel) error
	GetByID(ctx context.Context, id uint64) (*repository.Hotel, error)
	NameExists(ctx context.Context, name string, excludeID uint64) (bool, error)
	Update(ctx context.Context, h *repository.Hotel) error
	Delete(ctx context.Context, id uint64) error
	UserCount(ctx context.Context, hotelID uint64) (int, error)
	Count(ctx context.Context, f repository.HotelListFilter) (int, error)
	List(ctx context.Context, f repository.HotelListFilter) ([]*repository.Hotel, error)
}

// TokenLifecycle is the refresh-token service contract.
// *auth.TokenService satisfies it.
type TokenLifecycle interface {
	Issue(ctx context.Context, a *repository.Account) (auth.Pair, error)
	Rotate(ctx context.Context, raw string) (auth.Pair, *repository.Account, error)
	Blacklist(ctx context.Context, raw string) error
	Consume(ctx context.Context, raw string) (*repository.Account, error)
	RevokeAll(ctx context.Context, accountID uint64) error
}

// EmailPublisher hands a mail request to the broker.
// queue_publisher.PublishEmail satisfies it.
type EmailPublisher func(ctx context.Context, event queue.EmailEvent) error
