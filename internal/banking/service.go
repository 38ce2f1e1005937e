package banking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eretailgoals/books-backend/internal/shared"
)

// RepositoryPort abstracts banking persistence.
type RepositoryPort interface {
	CreateAccount(ctx context.Context, a BankAccount) (BankAccount, error)
	GetAccount(ctx context.Context, id int64) (BankAccount, error)
	ListAccounts(ctx context.Context, activeOnly bool) ([]BankAccount, error)
	UpdateAccount(ctx context.Context, a BankAccount) error
	DeleteAccount(ctx context.Context, id int64) error
	SetAccountActive(ctx context.Context, id int64, active bool) error
	ExistsByAccountNumber(ctx context.Context, number string) (bool, error)
	CountTransactionsByAccount(ctx context.Context, accountID int64) (int64, error)
	TotalBalance(ctx context.Context) (decimal.Decimal, error)

	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilters) ([]Transaction, int, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the slice of the repository available inside a transaction.
// GetAccount takes a row lock so balance updates serialize per account.
type TxRepository interface {
	GetAccount(ctx context.Context, id int64) (BankAccount, error)
	UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, txn Transaction) (Transaction, error)
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	SetReconciled(ctx context.Context, id int64, reconciled bool) error
}

// Service carries banking business rules.
type Service struct {
	repo RepositoryPort
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateAccount opens an account. The current balance starts at the opening
// balance and only the transaction recorder moves it afterwards.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (BankAccount, error) {
	a := BankAccount{
		AdminID:        input.AdminID,
		AccountName:    strings.TrimSpace(input.AccountName),
		AccountType:    input.AccountType,
		AccountNumber:  strings.TrimSpace(input.AccountNumber),
		SortCode:       input.SortCode,
		OpeningBalance: input.OpeningBalance,
		CurrentBalance: input.OpeningBalance,
		IsActive:       true,
	}
	if a.AccountName == "" || a.AccountNumber == "" {
		return BankAccount{}, fmt.Errorf("account name and number are required: %w", shared.ErrValidation)
	}
	if a.AccountType == "" {
		a.AccountType = AccountCurrent
	}
	switch a.AccountType {
	case AccountCurrent, AccountSavings, AccountCreditCard, AccountLoan:
	default:
		return BankAccount{}, fmt.Errorf("unknown account type %q: %w", a.AccountType, shared.ErrValidation)
	}

	if exists, err := s.repo.ExistsByAccountNumber(ctx, a.AccountNumber); err != nil {
		return BankAccount{}, err
	} else if exists {
		return BankAccount{}, fmt.Errorf("account number %s already in use: %w", a.AccountNumber, shared.ErrDuplicateKey)
	}

	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	return s.repo.CreateAccount(ctx, a)
}

func (s *Service) GetAccount(ctx context.Context, id int64) (BankAccount, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) ListAccounts(ctx context.Context, activeOnly bool) ([]BankAccount, error) {
	return s.repo.ListAccounts(ctx, activeOnly)
}

// UpdateAccount renames an account. The account number and balances stay.
func (s *Service) UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) (BankAccount, error) {
	a, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return BankAccount{}, err
	}
	name := strings.TrimSpace(input.AccountName)
	if name == "" {
		return BankAccount{}, fmt.Errorf("account name is required: %w", shared.ErrValidation)
	}
	a.AccountName = name
	if input.AccountType != "" {
		a.AccountType = input.AccountType
	}
	a.SortCode = input.SortCode
	a.UpdatedAt = time.Now()
	if err := s.repo.UpdateAccount(ctx, a); err != nil {
		return BankAccount{}, err
	}
	return a, nil
}

// DeleteAccount removes an account with no recorded transactions.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	if _, err := s.repo.GetAccount(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountTransactionsByAccount(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("account %d has %d transactions: %w", id, n, shared.ErrStatePrecondition)
	}
	return s.repo.DeleteAccount(ctx, id)
}

// SetAccountActive toggles the active flag. Inactive accounts refuse new
// transactions but keep their history.
func (s *Service) SetAccountActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.repo.GetAccount(ctx, id); err != nil {
		return err
	}
	return s.repo.SetAccountActive(ctx, id, active)
}

// RecordTransaction applies a single credit or debit to an account and stores
// the movement with an ending balance snapshot. Transfers go through Transfer.
func (s *Service) RecordTransaction(ctx context.Context, input RecordTransactionInput) (Transaction, error) {
	if input.Amount.Sign() <= 0 {
		return Transaction{}, fmt.Errorf("transaction amount must be positive: %w", shared.ErrInvalidAmount)
	}
	if !input.Type.IsCredit() && !input.Type.IsDebit() {
		return Transaction{}, fmt.Errorf("type %q cannot be recorded directly: %w", input.Type, shared.ErrValidation)
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}

	var recorded Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetAccount(ctx, input.BankAccountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return fmt.Errorf("account %d is closed: %w", account.ID, shared.ErrStatePrecondition)
		}

		txn := Transaction{
			AdminID:         input.AdminID,
			Date:            input.Date,
			Amount:          input.Amount,
			Type:            input.Type,
			ExpenseType:     input.ExpenseType,
			ReferenceNumber: input.ReferenceNumber,
			Note:            input.Note,
			BankAccountID:   account.ID,
			UserID:          input.UserID,
			InvoiceID:       input.InvoiceID,
		}
		if txn.ReferenceNumber == "" {
			txn.ReferenceNumber = newReference()
		}
		txn.EndingBalance = account.CurrentBalance.Add(txn.SignedAmount())

		stored, err := tx.InsertTransaction(ctx, txn)
		if err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, account.ID, txn.EndingBalance); err != nil {
			return err
		}
		recorded = stored
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return recorded, nil
}

// Transfer moves money between two accounts atomically, recording a TRANSFER
// leg on each side under a shared reference number.
func (s *Service) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, note string, adminID int64) ([]Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive: %w", shared.ErrInvalidAmount)
	}
	if fromID == toID {
		return nil, fmt.Errorf("transfer requires two distinct accounts: %w", shared.ErrValidation)
	}

	ref := newReference()
	now := time.Now()
	var legs []Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Lock in a stable order so concurrent opposite transfers cannot deadlock.
		firstID, secondID := fromID, toID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		locked := map[int64]BankAccount{}
		for _, id := range []int64{firstID, secondID} {
			a, err := tx.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			if !a.IsActive {
				return fmt.Errorf("account %d is closed: %w", a.ID, shared.ErrStatePrecondition)
			}
			locked[id] = a
		}
		from, to := locked[fromID], locked[toID]

		fromBalance := from.CurrentBalance.Sub(amount)
		toBalance := to.CurrentBalance.Add(amount)

		out := Transaction{
			AdminID: adminID, Date: now, Amount: amount.Neg(), Type: TxnTransfer,
			ReferenceNumber: ref, Note: note, BankAccountID: from.ID, EndingBalance: fromBalance,
		}
		in := Transaction{
			AdminID: adminID, Date: now, Amount: amount, Type: TxnTransfer,
			ReferenceNumber: ref, Note: note, BankAccountID: to.ID, EndingBalance: toBalance,
		}
		for _, leg := range []Transaction{out, in} {
			stored, err := tx.InsertTransaction(ctx, leg)
			if err != nil {
				return err
			}
			legs = append(legs, stored)
		}
		if err := tx.UpdateBalance(ctx, from.ID, fromBalance); err != nil {
			return err
		}
		return tx.UpdateBalance(ctx, to.ID, toBalance)
	})
	if err != nil {
		return nil, err
	}
	return legs, nil
}

func (s *Service) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) ListTransactions(ctx context.Context, f TransactionFilters) ([]Transaction, shared.Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	txns, total, err := s.repo.ListTransactions(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return txns, shared.NewPagination(f.Page, f.PerPage, total), nil
}

// DeleteTransaction removes a movement and reverses its effect on the account
// balance. Reconciled transactions are immutable.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		txn, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if txn.IsReconciled {
			return fmt.Errorf("transaction %d is reconciled: %w", id, shared.ErrStatePrecondition)
		}
		account, err := tx.GetAccount(ctx, txn.BankAccountID)
		if err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return tx.UpdateBalance(ctx, account.ID, account.CurrentBalance.Sub(txn.SignedAmount()))
	})
}

// SetReconciled marks a transaction as matched against a bank statement.
func (s *Service) SetReconciled(ctx context.Context, id int64, reconciled bool) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetTransaction(ctx, id); err != nil {
			return err
		}
		return tx.SetReconciled(ctx, id, reconciled)
	})
}

// TotalBalance sums current balances over active accounts.
func (s *Service) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.TotalBalance(ctx)
}

func newReference() string {
	return "TXN-" + strings.ToUpper(uuid.NewString()[:8])
}
