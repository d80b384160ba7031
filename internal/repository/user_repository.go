package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Account mirrors the 'accounts' table. PasswordHash is never serialized to
// clients; handlers build response DTOs explicitly.
type Account struct {
	ID              uint64
	Username        string
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	Image           string
	IsActive        bool
	IsStaff         bool
	IsSuperuser     bool
	IsEmailVerified bool
	CreatedBy       *uint64
	LastLogin       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserRepo encapsulates all database queries for accounts.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const accountColumns = `id, username, email, password_hash, first_name, last_name, image,
	is_active, is_staff, is_superuser, is_email_verified, created_by, last_login, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*Account, error) {
	var (
		a         Account
		createdBy sql.NullInt64
		lastLogin sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.Image, &a.IsActive, &a.IsStaff, &a.IsSuperuser, &a.IsEmailVerified,
		&createdBy, &lastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		v := uint64(createdBy.Int64)
		a.CreatedBy = &v
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLogin = &t
	}
	return &a, nil
}

// dupKeyError maps a MySQL duplicate-key error (1062) on the accounts table
// to the matching sentinel.
func dupKeyError(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	if strings.Contains(msg, "username") {
		return ErrUsernameExists
	}
	return ErrEmailExists
}

// Create inserts an account and populates its ID and timestamps. The caller
// provides an already-hashed password and, for admin-created accounts, the
// creator id.
func (r *UserRepo) Create(ctx context.Context, a *Account) error {
	a.Username = strings.TrimSpace(a.Username)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO accounts (username, email, password_hash, first_name, last_name, image,
			is_active, is_staff, is_superuser, is_email_verified, created_by)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.Username, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.Image,
		a.IsActive, a.IsStaff, a.IsSuperuser, a.IsEmailVerified, a.CreatedBy)
	if err != nil {
		return dupKeyError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)

	created, err := r.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

// GetByID fetches an account or ErrUserNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return a, err
}

// GetByLogin fetches an account by username or email. Used by login, which
// accepts either in a single field.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*Account, error) {
	login = strings.TrimSpace(login)
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE username=? OR email=? LIMIT 1",
		login, strings.ToLower(login))
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return a, err
}

// GetByEmail fetches an account by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(email)))
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return a, err
}

// Update writes the mutable field set of an account. created_by, timestamps
// and the membership list are system-managed and never written here.
func (r *UserRepo) Update(ctx context.Context, a *Account) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE accounts SET username=?, email=?, password_hash=?, first_name=?, last_name=?, image=?,
			is_active=?, is_staff=?, is_superuser=?, is_email_verified=?
		 WHERE id=?`,
		a.Username, strings.ToLower(a.Email), a.PasswordHash, a.FirstName, a.LastName, a.Image,
		a.IsActive, a.IsStaff, a.IsSuperuser, a.IsEmailVerified, a.ID)
	if err != nil {
		return dupKeyError(err)
	}
	return nil
}

// SetPassword stores a new password hash for the account.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET password_hash=? WHERE id=?", hash, id)
	return err
}

// SetEmailVerified flips the verification flag.
func (r *UserRepo) SetEmailVerified(ctx context.Context, id uint64, verified bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET is_email_verified=? WHERE id=?", verified, id)
	return err
}

// UpdateLastLogin stamps a successful authentication.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET last_login=UTC_TIMESTAMP() WHERE id=?", id)
	return err
}

// Delete removes an account. Accounts it created survive with created_by NULL
// via the FK's ON DELETE SET NULL; refresh tokens and memberships cascade.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM accounts WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// HotelIDs returns the ids of hotels the account belongs to.
func (r *UserRepo) HotelIDs(ctx context.Context, accountID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT hotel_id FROM account_hotels WHERE account_id=? ORDER BY hotel_id", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UserListFilter describes a scoped, filtered, ordered, paginated account
// list query. CreatorScope is the authorization scope and is applied before
// every caller-supplied filter; it cannot be widened by them.
type UserListFilter struct {
	CreatorScope    *uint64 // nil = all rows (admin)
	IsActive        *bool
	IsStaff         *bool
	IsSuperuser     *bool
	IsEmailVerified *bool
	CreatedBy       *uint64 // admin-only cross-creator filter
	Search          string  // matches username/email/first_name/last_name
	OrderColumn     string  // validated against an allow-list by the caller
	OrderDesc       bool
	Limit           int
	Offset          int
}

func (f UserListFilter) where() (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if f.CreatorScope != nil {
		clauses = append(clauses, "created_by=?")
		args = append(args, *f.CreatorScope)
	}
	if f.IsActive != nil {
		clauses = append(clauses, "is_active=?")
		args = append(args, *f.IsActive)
	}
	if f.IsStaff != nil {
		clauses = append(clauses, "is_staff=?")
		args = append(args, *f.IsStaff)
	}
	if f.IsSuperuser != nil {
		clauses = append(clauses, "is_superuser=?")
		args = append(args, *f.IsSuperuser)
	}
	if f.IsEmailVerified != nil {
		clauses = append(clauses, "is_email_verified=?")
		args = append(args, *f.IsEmailVerified)
	}
	if f.CreatedBy != nil {
		clauses = append(clauses, "created_by=?")
		args = append(args, *f.CreatedBy)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		clauses = append(clauses, "(username LIKE ? OR email LIKE ? OR first_name LIKE ? OR last_name LIKE ?)")
		args = append(args, like, like, like, like)
	}
	return strings.Join(clauses, " AND "), args
}

// Count returns the number of rows matching the filter's scope and criteria.
func (r *UserRepo) Count(ctx context.Context, f UserListFilter) (int, error) {
	where, args := f.where()
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE "+where, args...).Scan(&n)
	return n, err
}

// List returns one page of accounts matching the filter.
func (r *UserRepo) List(ctx context.Context, f UserListFilter) ([]*Account, error) {
	where, args := f.where()
	order := f.OrderColumn
	if order == "" {
		order = "created_at"
	}
	dir := "ASC"
	if f.OrderDesc {
		dir = "DESC"
	}
	q := fmt.Sprintf("SELECT %s FROM accounts WHERE %s ORDER BY %s %s, id %s LIMIT ? OFFSET ?",
		accountColumns, where, order, dir, dir)
	args = append(args, f.Limit, f.Offset)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
