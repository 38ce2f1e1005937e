package banking

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

// Repository provides PostgreSQL backed persistence for accounts and
// transactions.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, admin_id, account_name, account_type, account_number, sort_code,
	opening_balance, current_balance, is_active, created_at, updated_at`

const transactionColumns = `id, admin_id, txn_date, amount, txn_type, expense_type, reference_number,
	note, is_reconciled, ending_balance, bank_account_id, user_id, invoice_id, created_at, updated_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func scanAccount(row pgx.Row) (BankAccount, error) {
	var a BankAccount
	err := row.Scan(&a.ID, &a.AdminID, &a.AccountName, &a.AccountType, &a.AccountNumber,
		&a.SortCode, &a.OpeningBalance, &a.CurrentBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return BankAccount{}, mapErr(err)
	}
	return a, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.AdminID, &t.Date, &t.Amount, &t.Type, &t.ExpenseType,
		&t.ReferenceNumber, &t.Note, &t.IsReconciled, &t.EndingBalance, &t.BankAccountID,
		&t.UserID, &t.InvoiceID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Transaction{}, mapErr(err)
	}
	return t, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("banking: %w", shared.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("banking: %w", shared.ErrDuplicateKey)
	}
	return err
}

func (r *Repository) CreateAccount(ctx context.Context, a BankAccount) (BankAccount, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bank_accounts (admin_id, account_name, account_type, account_number, sort_code,
			opening_balance, current_balance, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
		a.AdminID, a.AccountName, a.AccountType, a.AccountNumber, a.SortCode,
		a.OpeningBalance, a.CurrentBalance, a.IsActive, now).Scan(&a.ID)
	if err != nil {
		return BankAccount{}, mapErr(err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return a, nil
}

func (r *Repository) GetAccount(ctx context.Context, id int64) (BankAccount, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM bank_accounts WHERE id = $1`, id))
}

func (r *Repository) ListAccounts(ctx context.Context, activeOnly bool) ([]BankAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY account_name, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []BankAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *Repository) UpdateAccount(ctx context.Context, a BankAccount) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bank_accounts SET account_name = $1, account_type = $2, sort_code = $3, updated_at = $4
		 WHERE id = $5`,
		a.AccountName, a.AccountType, a.SortCode, a.UpdatedAt, a.ID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("banking: account %d: %w", a.ID, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bank_accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("banking: account %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) SetAccountActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bank_accounts SET is_active = $1, updated_at = $2 WHERE id = $3`, active, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("banking: account %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) ExistsByAccountNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bank_accounts WHERE account_number = $1)`, number).Scan(&exists)
	return exists, err
}

func (r *Repository) CountTransactionsByAccount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE bank_account_id = $1`, accountID).Scan(&count)
	return count, err
}

// TotalBalance sums current balances over active accounts.
func (r *Repository) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(current_balance), 0) FROM bank_accounts WHERE is_active`).Scan(&total)
	return total, err
}

func getTransaction(ctx context.Context, q querier, id int64) (Transaction, error) {
	return scanTransaction(q.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return getTransaction(ctx, r.pool, id)
}

// ListTransactions returns movements matching the filters plus the match count.
func (r *Repository) ListTransactions(ctx context.Context, filters TransactionFilters) ([]Transaction, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.BankAccountID != 0 {
		argCount++
		where += ` AND bank_account_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.BankAccountID)
	}
	if filters.UserID != 0 {
		argCount++
		where += ` AND user_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.UserID)
	}
	if filters.InvoiceID != 0 {
		argCount++
		where += ` AND invoice_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.InvoiceID)
	}
	if filters.Type != "" {
		argCount++
		where += ` AND txn_type = $` + strconv.Itoa(argCount)
		args = append(args, filters.Type)
	}
	if filters.IsReconciled != nil {
		argCount++
		where += ` AND is_reconciled = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsReconciled)
	}
	if filters.From != nil {
		argCount++
		where += ` AND txn_date >= $` + strconv.Itoa(argCount)
		args = append(args, *filters.From)
	}
	if filters.To != nil {
		argCount++
		where += ` AND txn_date <= $` + strconv.Itoa(argCount)
		args = append(args, *filters.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY txn_date DESC, id DESC`
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
	var txns []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		txns = append(txns, t)
	}
	return txns, total, rows.Err()
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

func (t *txRepo) GetAccount(ctx context.Context, id int64) (BankAccount, error) {
	return scanAccount(t.tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM bank_accounts WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE bank_accounts SET current_balance = $1, updated_at = $2 WHERE id = $3`,
		balance, time.Now(), accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("banking: account %d: %w", accountID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) InsertTransaction(ctx context.Context, txn Transaction) (Transaction, error) {
	now := time.Now()
	err := t.tx.QueryRow(ctx,
		`INSERT INTO transactions (admin_id, txn_date, amount, txn_type, expense_type, reference_number,
			note, is_reconciled, ending_balance, bank_account_id, user_id, invoice_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13) RETURNING id`,
		txn.AdminID, txn.Date, txn.Amount, txn.Type, txn.ExpenseType, txn.ReferenceNumber,
		txn.Note, txn.IsReconciled, txn.EndingBalance, txn.BankAccountID, txn.UserID,
		txn.InvoiceID, now).Scan(&txn.ID)
	if err != nil {
		return Transaction{}, mapErr(err)
	}
	txn.CreatedAt = now
	txn.UpdatedAt = now
	return txn, nil
}

func (t *txRepo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return getTransaction(ctx, t.tx, id)
}

func (t *txRepo) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("banking: transaction %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) SetReconciled(ctx context.Context, id int64, reconciled bool) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE transactions SET is_reconciled = $1, updated_at = $2 WHERE id = $3`,
		reconciled, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("banking: transaction %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
