package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eretailgoals/books-backend/internal/shared"
)

// Repository provides PostgreSQL backed persistence for users.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, admin_id, first_name, last_name, email, company_name, username, password_hash,
	address, postcode, shipping_address, shipping_postcode, phone_office, phone_home, mobile,
	vat_number, fax, user_type, is_active, login_timestamp, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.AdminID, &u.FirstName, &u.LastName, &u.Email, &u.CompanyName,
		&u.Username, &u.PasswordHash, &u.Address, &u.Postcode, &u.ShippingAddress,
		&u.ShippingPostcode, &u.PhoneOffice, &u.PhoneHome, &u.Mobile, &u.VATNumber, &u.Fax,
		&u.Type, &u.IsActive, &u.LoginTimestamp, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, mapErr(err)
	}
	return u, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("users: %w", shared.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("users: %w", shared.ErrDuplicateKey)
	}
	return err
}

func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (admin_id, first_name, last_name, email, company_name, username,
			password_hash, address, postcode, shipping_address, shipping_postcode, phone_office,
			phone_home, mobile, vat_number, fax, user_type, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
		 RETURNING id`,
		u.AdminID, u.FirstName, u.LastName, u.Email, u.CompanyName, u.Username, u.PasswordHash,
		u.Address, u.Postcode, u.ShippingAddress, u.ShippingPostcode, u.PhoneOffice, u.PhoneHome,
		u.Mobile, u.VATNumber, u.Fax, u.Type, u.IsActive, now).Scan(&u.ID)
	if err != nil {
		return User{}, mapErr(err)
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return u, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *Repository) Update(ctx context.Context, u User) (User, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET first_name = $1, last_name = $2, email = $3, company_name = $4,
			username = $5, address = $6, postcode = $7, shipping_address = $8,
			shipping_postcode = $9, phone_office = $10, phone_home = $11, mobile = $12,
			vat_number = $13, fax = $14, updated_at = $15
		 WHERE id = $16`,
		u.FirstName, u.LastName, u.Email, u.CompanyName, u.Username, u.Address, u.Postcode,
		u.ShippingAddress, u.ShippingPostcode, u.PhoneOffice, u.PhoneHome, u.Mobile,
		u.VATNumber, u.Fax, u.UpdatedAt, u.ID)
	if err != nil {
		return User{}, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, fmt.Errorf("users: id %d: %w", u.ID, shared.ErrNotFound)
	}
	return u, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("users: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// List returns users matching the filters plus the unfiltered match count.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Type != "" {
		argCount++
		where += ` AND user_type = $` + strconv.Itoa(argCount)
		args = append(args, filters.Type)
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	if filters.Search != "" {
		argCount++
		p := `$` + strconv.Itoa(argCount)
		where += ` AND (first_name ILIKE ` + p + ` OR last_name ILIKE ` + p +
			` OR email ILIKE ` + p + ` OR company_name ILIKE ` + p + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY last_name, first_name, id`
	if filters.PerPage > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.PerPage)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, shared.Pagination{Page: filters.Page, PerPage: filters.PerPage}.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *Repository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, excludeID).Scan(&exists)
	return exists, err
}

func (r *Repository) ExistsByUsername(ctx context.Context, username string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`, username, excludeID).Scan(&exists)
	return exists, err
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`, active, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("users: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, hash, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("users: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET login_timestamp = $1 WHERE id = $2`, at, id)
	return err
}

// CountActivity counts invoices and transactions that reference the user.
// Deletion is refused while any remain.
func (r *Repository) CountActivity(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM invoices WHERE user_id = $1)
			  + (SELECT COUNT(*) FROM transactions WHERE user_id = $1)`, id).Scan(&n)
	return n, err
}
