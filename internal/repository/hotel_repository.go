package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Hotel mirrors the 'hotels' table. SocialLinks round-trips through the JSON
// column; keys are validated against the platform allow-list before writes.
type Hotel struct {
	ID          uint64
	Name        string
	Description string
	Address     string
	Phone       string
	Email       string
	Website     string
	Image       string
	Cover       string
	Note        string
	ActiveUntil *time.Time
	SocialLinks map[string]string
	IsActive    bool
	CreatedBy   *uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HotelRepo encapsulates all database queries for hotels and their
// membership rows.
type HotelRepo struct{ DB *sql.DB }

func NewHotelRepo(db *sql.DB) *HotelRepo { return &HotelRepo{DB: db} }

const hotelColumns = `id, name, description, address, phone, email, website, image, cover, note,
	active_until, social_links, is_active, created_by, created_at, updated_at`

func scanHotel(row interface{ Scan(...any) error }) (*Hotel, error) {
	var (
		h           Hotel
		activeUntil sql.NullTime
		links       []byte
		createdBy   sql.NullInt64
	)
	err := row.Scan(&h.ID, &h.Name, &h.Description, &h.Address, &h.Phone, &h.Email, &h.Website,
		&h.Image, &h.Cover, &h.Note, &activeUntil, &links, &h.IsActive, &createdBy,
		&h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if activeUntil.Valid {
		t := activeUntil.Time
		h.ActiveUntil = &t
	}
	if createdBy.Valid {
		v := uint64(createdBy.Int64)
		h.CreatedBy = &v
	}
	h.SocialLinks = map[string]string{}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &h.SocialLinks); err != nil {
			return nil, err
		}
	}
	return &h, nil
}

// NameExists reports whether another hotel already uses the name,
// case-insensitively. excludeID skips the row being updated.
func (r *HotelRepo) NameExists(ctx context.Context, name string, excludeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM hotels WHERE LOWER(name)=LOWER(?) AND id<>?",
		strings.TrimSpace(name), excludeID).Scan(&n)
	return n > 0, err
}

// Create inserts a hotel and populates its ID and timestamps.
func (r *HotelRepo) Create(ctx context.Context, h *Hotel) error {
	if h.SocialLinks == nil {
		h.SocialLinks = map[string]string{}
	}
	links, err := json.Marshal(h.SocialLinks)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO hotels (name, description, address, phone, email, website, image, cover, note,
			active_until, social_links, is_active, created_by)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		h.Name, h.Description, h.Address, h.Phone, h.Email, h.Website, h.Image, h.Cover, h.Note,
		h.ActiveUntil, links, h.IsActive, h.CreatedBy)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrHotelNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)

	created, err := r.GetByID(ctx, h.ID)
	if err != nil {
		return err
	}
	*h = *created
	return nil
}

// GetByID fetches a hotel regardless of creator, or ErrHotelNotFound.
func (r *HotelRepo) GetByID(ctx context.Context, id uint64) (*Hotel, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+hotelColumns+" FROM hotels WHERE id=? LIMIT 1", id)
	h, err := scanHotel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHotelNotFound
	}
	return h, err
}

// Update writes the mutable field set of a hotel. created_by, timestamps and
// the membership list are system-managed and never written here.
func (r *HotelRepo) Update(ctx context.Context, h *Hotel) error {
	if h.SocialLinks == nil {
		h.SocialLinks = map[string]string{}
	}
	links, err := json.Marshal(h.SocialLinks)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE hotels SET name=?, description=?, address=?, phone=?, email=?, website=?,
			image=?, cover=?, note=?, active_until=?, social_links=?, is_active=?
		 WHERE id=?`,
		h.Name, h.Description, h.Address, h.Phone, h.Email, h.Website,
		h.Image, h.Cover, h.Note, h.ActiveUntil, links, h.IsActive, h.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrHotelNameExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 for a no-op update too; confirm existence.
		if _, err := r.GetByID(ctx, h.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a hotel and its membership rows in one transaction.
func (r *HotelRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()
	if _, err = tx.ExecContext(ctx, "DELETE FROM account_hotels WHERE hotel_id=?", id); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx, "DELETE FROM hotels WHERE id=?", id); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrHotelNotFound
	}
	return err
}

// UserCount returns how many accounts belong to the hotel.
func (r *HotelRepo) UserCount(ctx context.Context, hotelID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM account_hotels WHERE hotel_id=?", hotelID).Scan(&n)
	return n, err
}

// HotelListFilter describes a scoped, filtered, ordered, paginated hotel list
// query. CreatorScope is the authorization scope; caller filters only narrow
// within it.
type HotelListFilter struct {
	CreatorScope *uint64 // nil = all rows (admin)
	IsActive     *bool
	CreatedBy    *uint64 // admin-only cross-creator filter
	Search       string  // matches name/address/phone/email
	OrderColumn  string
	OrderDesc    bool
	Limit        int
	Offset       int
}

func (f HotelListFilter) where() (string, []any) {
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
	if f.CreatedBy != nil {
		clauses = append(clauses, "created_by=?")
		args = append(args, *f.CreatedBy)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		clauses = append(clauses, "(name LIKE ? OR address LIKE ? OR phone LIKE ? OR email LIKE ?)")
		args = append(args, like, like, like, like)
	}
	return strings.Join(clauses, " AND "), args
}

// Count returns the number of rows matching the filter's scope and criteria.
func (r *HotelRepo) Count(ctx context.Context, f HotelListFilter) (int, error) {
	where, args := f.where()
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM hotels WHERE "+where, args...).Scan(&n)
	return n, err
}

// List returns one page of hotels matching the filter.
func (r *HotelRepo) List(ctx context.Context, f HotelListFilter) ([]*Hotel, error) {
	where, args := f.where()
	order := f.OrderColumn
	if order == "" {
		order = "created_at"
	}
	dir := "ASC"
	if f.OrderDesc {
		dir = "DESC"
	}
	q := fmt.Sprintf("SELECT %s FROM hotels WHERE %s ORDER BY %s %s, id %s LIMIT ? OFFSET ?",
		hotelColumns, where, order, dir, dir)
	args = append(args, f.Limit, f.Offset)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Hotel
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
