package invoices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/eretailgoals/books-backend/internal/platform/db"
	"github.com/eretailgoals/books-backend/internal/shared"
)

// Repository provides PostgreSQL backed persistence for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, admin_id, invoice_number, invoice_date, due_date, invoice_type, invoice_note,
	invoice_amount, vat_amount, invoice_paid_amount, invoice_status, user_id, created_at, updated_at`

const itemColumns = `id, item_description, quantity, unit_price, discount_percent, vat_rate_percent,
	item_code, unit, line_total, created_at, updated_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.AdminID, &inv.Number, &inv.InvoiceDate, &inv.DueDate, &inv.Type,
		&inv.Note, &inv.Amount, &inv.VATAmount, &inv.PaidAmount, &inv.Status, &inv.UserID,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, mapErr(err)
	}
	return inv, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("invoices: %w", shared.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("invoices: %w", shared.ErrDuplicateKey)
	}
	return err
}

func getInvoice(ctx context.Context, q querier, id int64) (Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return Invoice{}, err
	}
	items, err := listItems(ctx, q, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

func listItems(ctx context.Context, q querier, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := q.Query(ctx,
		`SELECT `+itemColumns+` FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceItem
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.Description, &item.Quantity, &item.UnitPrice,
			&item.DiscountPercent, &item.VATRatePercent, &item.ItemCode, &item.Unit,
			&item.LineTotal, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func insertItem(ctx context.Context, q querier, invoiceID int64, item InvoiceItem) (InvoiceItem, error) {
	now := time.Now()
	err := q.QueryRow(ctx,
		`INSERT INTO invoice_items (invoice_id, item_description, quantity, unit_price, discount_percent,
			vat_rate_percent, item_code, unit, line_total, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10) RETURNING id`,
		invoiceID, item.Description, item.Quantity, item.UnitPrice, item.DiscountPercent,
		item.VATRatePercent, item.ItemCode, item.Unit, item.LineTotal, now).Scan(&item.ID)
	if err != nil {
		return InvoiceItem{}, mapErr(err)
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

// Create inserts the invoice header and its items.
func (r *Repository) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now()
		err := tx.QueryRow(ctx,
			`INSERT INTO invoices (admin_id, invoice_number, invoice_date, due_date, invoice_type,
				invoice_note, invoice_amount, vat_amount, invoice_paid_amount, invoice_status, user_id,
				created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12) RETURNING id`,
			inv.AdminID, inv.Number, inv.InvoiceDate, inv.DueDate, inv.Type, inv.Note,
			inv.Amount, inv.VATAmount, inv.PaidAmount, inv.Status, inv.UserID, now).Scan(&inv.ID)
		if err != nil {
			return mapErr(err)
		}
		inv.CreatedAt = now
		inv.UpdatedAt = now
		for i := range inv.Items {
			stored, err := insertItem(ctx, tx, inv.ID, inv.Items[i])
			if err != nil {
				return err
			}
			inv.Items[i] = stored
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Get loads an invoice with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, r.pool, id)
}

// GetByNumber loads an invoice by its unique number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = $1`, number))
	if err != nil {
		return Invoice{}, err
	}
	items, err := listItems(ctx, r.pool, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

// Update persists header fields and the cached status.
func (r *Repository) Update(ctx context.Context, inv Invoice) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET invoice_number = $1, invoice_date = $2, due_date = $3, invoice_type = $4,
			invoice_note = $5, invoice_amount = $6, vat_amount = $7, invoice_status = $8, updated_at = $9
		 WHERE id = $10`,
		inv.Number, inv.InvoiceDate, inv.DueDate, inv.Type, inv.Note, inv.Amount, inv.VATAmount,
		inv.Status, time.Now(), inv.ID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoices: id %d: %w", inv.ID, shared.ErrNotFound)
	}
	return nil
}

// Delete removes an invoice; items go with it via the cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoices: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// List returns invoices matching the filters plus the unfiltered match count.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.UserID != 0 {
		argCount++
		where += ` AND user_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.UserID)
	}
	if filters.AdminID != 0 {
		argCount++
		where += ` AND admin_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.AdminID)
	}
	if filters.Status != "" {
		argCount++
		where += ` AND invoice_status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}
	if filters.From != nil {
		argCount++
		where += ` AND invoice_date >= $` + strconv.Itoa(argCount)
		args = append(args, *filters.From)
	}
	if filters.To != nil {
		argCount++
		where += ` AND invoice_date <= $` + strconv.Itoa(argCount)
		args = append(args, *filters.To)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (invoice_number ILIKE $` + strconv.Itoa(argCount) +
			` OR invoice_note ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices` + where + ` ORDER BY invoice_date DESC, id DESC`
	if filters.PerPage > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.PerPage)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, shared.Pagination{Page: filters.Page, PerPage: filters.PerPage}.Offset())
	}

	invs, err := r.queryInvoices(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return invs, total, nil
}

// ListOverdue returns invoices past their due date that are neither paid nor
// cancelled.
func (r *Repository) ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	return r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE due_date IS NOT NULL AND due_date < $1 AND invoice_status NOT IN ('PAID','CANCELLED')
		 ORDER BY due_date`, asOf)
}

// ListOutstanding returns invoices that still owe money.
func (r *Repository) ListOutstanding(ctx context.Context) ([]Invoice, error) {
	return r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE invoice_status IN ('OPEN','PARTIAL_PAID','OVERDUE') ORDER BY invoice_date`)
}

// ListRecent returns the most recently created invoices.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Invoice, error) {
	return r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
}

// ListDueWithin returns unsettled invoices due between from and to.
func (r *Repository) ListDueWithin(ctx context.Context, from, to time.Time) ([]Invoice, error) {
	return r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE due_date BETWEEN $1 AND $2 AND invoice_status NOT IN ('PAID','CANCELLED')
		 ORDER BY due_date`, from, to)
}

// Count returns the total number of invoices.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count)
	return count, err
}

// CountByStatus counts invoices in the given status.
func (r *Repository) CountByStatus(ctx context.Context, status Status) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE invoice_status = $1`, status).Scan(&count)
	return count, err
}

// ExistsByNumber reports whether an invoice number is already taken.
func (r *Repository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_number = $1)`, number).Scan(&exists)
	return exists, err
}

// TotalOutstanding sums gross minus paid over unsettled invoices.
func (r *Repository) TotalOutstanding(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(invoice_amount + vat_amount - invoice_paid_amount), 0) FROM invoices
		 WHERE invoice_status IN ('OPEN','PARTIAL_PAID','OVERDUE')`).Scan(&total)
	return total, err
}

// TotalOutstandingByUser sums the outstanding amount for one user.
func (r *Repository) TotalOutstandingByUser(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(invoice_amount + vat_amount - invoice_paid_amount), 0) FROM invoices
		 WHERE user_id = $1 AND invoice_status IN ('OPEN','PARTIAL_PAID','OVERDUE')`, userID).Scan(&total)
	return total, err
}

// TotalAmountByDateRange sums gross invoice amounts over a date range.
func (r *Repository) TotalAmountByDateRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(invoice_amount + vat_amount), 0) FROM invoices
		 WHERE invoice_date BETWEEN $1 AND $2`, from, to).Scan(&total)
	return total, err
}

func (r *Repository) queryInvoices(ctx context.Context, query string, args ...any) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invs []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(t.tx.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Invoice{}, err
	}
	items, err := listItems(ctx, t.tx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

func (t *txRepo) UpdatePayment(ctx context.Context, id int64, paid decimal.Decimal, status Status) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE invoices SET invoice_paid_amount = $1, invoice_status = $2, updated_at = $3 WHERE id = $4`,
		paid, status, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoices: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE invoices SET invoice_status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoices: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) InsertItem(ctx context.Context, invoiceID int64, item InvoiceItem) (InvoiceItem, error) {
	return insertItem(ctx, t.tx, invoiceID, item)
}

func (t *txRepo) DeleteItem(ctx context.Context, invoiceID, itemID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM invoice_items WHERE id = $1 AND invoice_id = $2`, itemID, invoiceID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) UpdateTotals(ctx context.Context, invoiceID int64, amount, vatAmount decimal.Decimal) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE invoices SET invoice_amount = $1, vat_amount = $2, updated_at = $3 WHERE id = $4`,
		amount, vatAmount, time.Now(), invoiceID)
	return err
}
