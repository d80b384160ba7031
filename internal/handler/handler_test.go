package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Infiora/infiora-backend/internal/auth"
	"github.com/Infiora/infiora-backend/internal/middleware"
	"github.com/Infiora/infiora-backend/internal/repository"
	"github.com/Infiora/infiora-backend/internal/utils"
)

// In-memory fakes for the store contracts. They mirror the uniqueness and
// scoping rules of the SQL repositories closely enough for handler tests.

type fakeUsers struct {
	accounts map[uint64]*repository.Account
	hotelIDs map[uint64][]uint64
	nextID   uint64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{accounts: map[uint64]*repository.Account{}, hotelIDs: map[uint64][]uint64{}}
}

func (f *fakeUsers) add(a *repository.Account) *repository.Account {
	if a.ID == 0 {
		f.nextID++
		a.ID = f.nextID
	} else if a.ID > f.nextID {
		f.nextID = a.ID
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	f.accounts[a.ID] = a
	return a
}

func (f *fakeUsers) dup(a *repository.Account) error {
	for _, other := range f.accounts {
		if other.ID == a.ID {
			continue
		}
		if strings.EqualFold(other.Username, a.Username) {
			return repository.ErrUsernameExists
		}
		if strings.EqualFold(other.Email, a.Email) {
			return repository.ErrEmailExists
		}
	}
	return nil
}

func (f *fakeUsers) Create(_ context.Context, a *repository.Account) error {
	if err := f.dup(a); err != nil {
		return err
	}
	f.add(a)
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*repository.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeUsers) GetByLogin(_ context.Context, login string) (*repository.Account, error) {
	for _, a := range f.accounts {
		if strings.EqualFold(a.Username, login) || strings.EqualFold(a.Email, login) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*repository.Account, error) {
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) Update(_ context.Context, a *repository.Account) error {
	cur, ok := f.accounts[a.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if err := f.dup(a); err != nil {
		return err
	}
	cp := *a
	cp.CreatedBy = cur.CreatedBy
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeUsers) SetPassword(_ context.Context, id uint64, hash string) error {
	a, ok := f.accounts[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeUsers) SetEmailVerified(_ context.Context, id uint64, verified bool) error {
	a, ok := f.accounts[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	a.IsEmailVerified = verified
	return nil
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id uint64) error {
	a, ok := f.accounts[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	now := time.Now().UTC()
	a.LastLogin = &now
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint64) error {
	if _, ok := f.accounts[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeUsers) HotelIDs(_ context.Context, accountID uint64) ([]uint64, error) {
	return f.hotelIDs[accountID], nil
}

func (f *fakeUsers) match(flt repository.UserListFilter) []*repository.Account {
	var out []*repository.Account
	for _, a := range f.accounts {
		if flt.CreatorScope != nil && (a.CreatedBy == nil || *a.CreatedBy != *flt.CreatorScope) {
			continue
		}
		if flt.CreatedBy != nil && (a.CreatedBy == nil || *a.CreatedBy != *flt.CreatedBy) {
			continue
		}
		if flt.IsActive != nil && a.IsActive != *flt.IsActive {
			continue
		}
		if flt.IsStaff != nil && a.IsStaff != *flt.IsStaff {
			continue
		}
		if flt.Search != "" && !strings.Contains(a.Username, flt.Search) && !strings.Contains(a.Email, flt.Search) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeUsers) Count(_ context.Context, flt repository.UserListFilter) (int, error) {
	return len(f.match(flt)), nil
}

func (f *fakeUsers) List(_ context.Context, flt repository.UserListFilter) ([]*repository.Account, error) {
	out := f.match(flt)
	if flt.Offset >= len(out) {
		return nil, nil
	}
	out = out[flt.Offset:]
	if flt.Limit > 0 && flt.Limit < len(out) {
		out = out[:flt.Limit]
	}
	return out, nil
}

type fakeHotels struct {
	hotels map[uint64]*repository.Hotel
	counts map[uint64]int
	nextID uint64
}

func newFakeHotels() *fakeHotels {
	return &fakeHotels{hotels: map[uint64]*repository.Hotel{}, counts: map[uint64]int{}}
}

func (f *fakeHotels) add(h *repository.Hotel) *repository.Hotel {
	if h.ID == 0 {
		f.nextID++
		h.ID = f.nextID
	} else if h.ID > f.nextID {
		f.nextID = h.ID
	}
	now := time.Now().UTC()
	h.CreatedAt, h.UpdatedAt = now, now
	f.hotels[h.ID] = h
	return h
}

func (f *fakeHotels) NameExists(_ context.Context, name string, excludeID uint64) (bool, error) {
	for _, h := range f.hotels {
		if h.ID != excludeID && strings.EqualFold(h.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHotels) Create(ctx context.Context, h *repository.Hotel) error {
	if taken, _ := f.NameExists(ctx, h.Name, 0); taken {
		return repository.ErrHotelNameExists
	}
	f.add(h)
	return nil
}

func (f *fakeHotels) GetByID(_ context.Context, id uint64) (*repository.Hotel, error) {
	h, ok := f.hotels[id]
	if !ok {
		return nil, repository.ErrHotelNotFound
	}
	cp := *h
	return &cp, nil
}

func (f *fakeHotels) Update(ctx context.Context, h *repository.Hotel) error {
	cur, ok := f.hotels[h.ID]
	if !ok {
		return repository.ErrHotelNotFound
	}
	if taken, _ := f.NameExists(ctx, h.Name, h.ID); taken {
		return repository.ErrHotelNameExists
	}
	cp := *h
	cp.CreatedBy = cur.CreatedBy
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	f.hotels[h.ID] = &cp
	return nil
}

func (f *fakeHotels) Delete(_ context.Context, id uint64) error {
	if _, ok := f.hotels[id]; !ok {
		return repository.ErrHotelNotFound
	}
	delete(f.hotels, id)
	return nil
}

func (f *fakeHotels) UserCount(_ context.Context, hotelID uint64) (int, error) {
	return f.counts[hotelID], nil
}

func (f *fakeHotels) match(flt repository.HotelListFilter) []*repository.Hotel {
	var out []*repository.Hotel
	for _, h := range f.hotels {
		if flt.CreatorScope != nil && (h.CreatedBy == nil || *h.CreatedBy != *flt.CreatorScope) {
			continue
		}
		if flt.CreatedBy != nil && (h.CreatedBy == nil || *h.CreatedBy != *flt.CreatedBy) {
			continue
		}
		if flt.IsActive != nil && h.IsActive != *flt.IsActive {
			continue
		}
		if flt.Search != "" && !strings.Contains(h.Name, flt.Search) && !strings.Contains(h.Address, flt.Search) {
			continue
		}
		cp := *h
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeHotels) Count(_ context.Context, flt repository.HotelListFilter) (int, error) {
	return len(f.match(flt)), nil
}

func (f *fakeHotels) List(_ context.Context, flt repository.HotelListFilter) ([]*repository.Hotel, error) {
	out := f.match(flt)
	if flt.Offset >= len(out) {
		return nil, nil
	}
	out = out[flt.Offset:]
	if flt.Limit > 0 && flt.Limit < len(out) {
		out = out[:flt.Limit]
	}
	return out, nil
}

// fakeTokens implements TokenLifecycle with opaque strings instead of JWTs.
type fakeTokens struct {
	users   *fakeUsers
	seq     int
	issued  map[string]uint64
	revoked map[string]bool
}

func newFakeTokens(users *fakeUsers) *fakeTokens {
	return &fakeTokens{users: users, issued: map[string]uint64{}, revoked: map[string]bool{}}
}

func (f *fakeTokens) Issue(_ context.Context, a *repository.Account) (auth.Pair, error) {
	f.seq++
	refresh := fmt.Sprintf("refresh-%d-%d", a.ID, f.seq)
	f.issued[refresh] = a.ID
	return auth.Pair{
		AccessToken: fmt.Sprintf("access-%d-%d", a.ID, f.seq),
		AccessExp:   time.Now().Add(time.Hour),
		Refresh:     refresh,
		RefreshExp:  time.Now().Add(24 * time.Hour),
	}, nil
}

func (f *fakeTokens) subject(ctx context.Context, raw string) (*repository.Account, error) {
	id, ok := f.issued[raw]
	if !ok || f.revoked[raw] {
		return nil, auth.ErrTokenInvalid
	}
	f.revoked[raw] = true
	a, err := f.users.GetByID(ctx, id)
	if err != nil || !a.IsActive {
		return nil, auth.ErrTokenInvalid
	}
	return a, nil
}

func (f *fakeTokens) Rotate(ctx context.Context, raw string) (auth.Pair, *repository.Account, error) {
	a, err := f.subject(ctx, raw)
	if err != nil {
		return auth.Pair{}, nil, err
	}
	pair, err := f.Issue(ctx, a)
	return pair, a, err
}

func (f *fakeTokens) Blacklist(_ context.Context, raw string) error {
	f.revoked[raw] = true
	return nil
}

func (f *fakeTokens) Consume(ctx context.Context, raw string) (*repository.Account, error) {
	return f.subject(ctx, raw)
}

func (f *fakeTokens) RevokeAll(_ context.Context, accountID uint64) error {
	for raw, id := range f.issued {
		if id == accountID {
			f.revoked[raw] = true
		}
	}
	return nil
}

// ----- request helpers -----

const testCost = 4 // minimum bcrypt cost keeps the suite fast

func seedAccount(t *testing.T, users *fakeUsers, username string, staff, super bool, createdBy *uint64) *repository.Account {
	t.Helper()
	hash, err := utils.HashPassword("password1", testCost)
	require.NoError(t, err)
	return users.add(&repository.Account{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      staff,
		IsSuperuser:  super,
		CreatedBy:    createdBy,
	})
}

// doJSON runs one handler with an optional authenticated actor and returns
// the recorder plus the decoded response body.
func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, actor *repository.Account, params ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("{}")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) >= 2 {
		names := make([]string, 0, len(params)/2)
		values := make([]string, 0, len(params)/2)
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if actor != nil {
		c.Set(middleware.CtxActor, actor)
		c.Set(middleware.CtxRole, auth.RoleOf(actor.IsStaff, actor.IsSuperuser))
	}
	require.NoError(t, h(c))

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body: %s", rec.Body.String())
}
