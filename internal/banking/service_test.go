package banking

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/eretailgoals/books-backend/internal/shared"
)

type memoryBankRepo struct {
	nextAccountID int64
	nextTxnID     int64
	accounts      map[int64]BankAccount
	transactions  map[int64]Transaction
}

func newMemoryBankRepo() *memoryBankRepo {
	return &memoryBankRepo{
		accounts:     map[int64]BankAccount{},
		transactions: map[int64]Transaction{},
	}
}

func (m *memoryBankRepo) CreateAccount(_ context.Context, a BankAccount) (BankAccount, error) {
	m.nextAccountID++
	a.ID = m.nextAccountID
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memoryBankRepo) GetAccount(_ context.Context, id int64) (BankAccount, error) {
	a, ok := m.accounts[id]
	if !ok {
		return BankAccount{}, fmt.Errorf("banking: account %d: %w", id, shared.ErrNotFound)
	}
	return a, nil
}

func (m *memoryBankRepo) ListAccounts(_ context.Context, activeOnly bool) ([]BankAccount, error) {
	var out []BankAccount
	for _, a := range m.accounts {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryBankRepo) UpdateAccount(_ context.Context, a BankAccount) error {
	if _, ok := m.accounts[a.ID]; !ok {
		return fmt.Errorf("banking: account %d: %w", a.ID, shared.ErrNotFound)
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *memoryBankRepo) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := m.accounts[id]; !ok {
		return fmt.Errorf("banking: account %d: %w", id, shared.ErrNotFound)
	}
	delete(m.accounts, id)
	return nil
}

func (m *memoryBankRepo) SetAccountActive(_ context.Context, id int64, active bool) error {
	a, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("banking: account %d: %w", id, shared.ErrNotFound)
	}
	a.IsActive = active
	m.accounts[id] = a
	return nil
}

func (m *memoryBankRepo) ExistsByAccountNumber(_ context.Context, number string) (bool, error) {
	for _, a := range m.accounts {
		if a.AccountNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryBankRepo) CountTransactionsByAccount(_ context.Context, accountID int64) (int64, error) {
	var n int64
	for _, t := range m.transactions {
		if t.BankAccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *memoryBankRepo) TotalBalance(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, a := range m.accounts {
		if a.IsActive {
			total = total.Add(a.CurrentBalance)
		}
	}
	return total, nil
}

func (m *memoryBankRepo) GetTransaction(_ context.Context, id int64) (Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return Transaction{}, fmt.Errorf("banking: transaction %d: %w", id, shared.ErrNotFound)
	}
	return t, nil
}

func (m *memoryBankRepo) ListTransactions(_ context.Context, f TransactionFilters) ([]Transaction, int, error) {
	var out []Transaction
	for _, t := range m.transactions {
		if f.BankAccountID != 0 && t.BankAccountID != f.BankAccountID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *memoryBankRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryBankTx{repo: m})
}

type memoryBankTx struct {
	repo *memoryBankRepo
}

func (t *memoryBankTx) GetAccount(ctx context.Context, id int64) (BankAccount, error) {
	return t.repo.GetAccount(ctx, id)
}

func (t *memoryBankTx) UpdateBalance(_ context.Context, accountID int64, balance decimal.Decimal) error {
	a, ok := t.repo.accounts[accountID]
	if !ok {
		return fmt.Errorf("banking: account %d: %w", accountID, shared.ErrNotFound)
	}
	a.CurrentBalance = balance
	t.repo.accounts[accountID] = a
	return nil
}

func (t *memoryBankTx) InsertTransaction(_ context.Context, txn Transaction) (Transaction, error) {
	t.repo.nextTxnID++
	txn.ID = t.repo.nextTxnID
	t.repo.transactions[txn.ID] = txn
	return txn, nil
}

func (t *memoryBankTx) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return t.repo.GetTransaction(ctx, id)
}

func (t *memoryBankTx) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := t.repo.transactions[id]; !ok {
		return fmt.Errorf("banking: transaction %d: %w", id, shared.ErrNotFound)
	}
	delete(t.repo.transactions, id)
	return nil
}

func (t *memoryBankTx) SetReconciled(_ context.Context, id int64, reconciled bool) error {
	txn, ok := t.repo.transactions[id]
	if !ok {
		return fmt.Errorf("banking: transaction %d: %w", id, shared.ErrNotFound)
	}
	txn.IsReconciled = reconciled
	t.repo.transactions[id] = txn
	return nil
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func openAccount(t *testing.T, svc *Service, number, balance string) BankAccount {
	t.Helper()
	a, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		AccountName:    "Main " + number,
		AccountNumber:  number,
		OpeningBalance: dec(t, balance),
	})
	require.NoError(t, err)
	return a
}

func TestCreateAccountDefaultsAndUniqueness(t *testing.T) {
	svc := NewService(newMemoryBankRepo())
	ctx := context.Background()

	a, err := svc.CreateAccount(ctx, CreateAccountInput{
		AccountName:    "Operating",
		AccountNumber:  "12345678",
		OpeningBalance: dec(t, "250.00"),
	})
	require.NoError(t, err)
	require.Equal(t, AccountCurrent, a.AccountType)
	require.True(t, a.IsActive)
	require.True(t, a.CurrentBalance.Equal(dec(t, "250.00")))

	_, err = svc.CreateAccount(ctx, CreateAccountInput{
		AccountName:   "Duplicate",
		AccountNumber: "12345678",
	})
	require.ErrorIs(t, err, shared.ErrDuplicateKey)
}

func TestRecordTransactionMovesBalance(t *testing.T) {
	repo := newMemoryBankRepo()
	svc := NewService(repo)
	ctx := context.Background()
	a := openAccount(t, svc, "11111111", "100.00")

	txn, err := svc.RecordTransaction(ctx, RecordTransactionInput{
		BankAccountID: a.ID,
		Amount:        dec(t, "40.50"),
		Type:          TxnReceive,
	})
	require.NoError(t, err)
	require.True(t, txn.EndingBalance.Equal(dec(t, "140.50")))
	require.NotEmpty(t, txn.ReferenceNumber)

	txn, err = svc.RecordTransaction(ctx, RecordTransactionInput{
		BankAccountID: a.ID,
		Amount:        dec(t, "15.25"),
		Type:          TxnFee,
	})
	require.NoError(t, err)
	require.True(t, txn.EndingBalance.Equal(dec(t, "125.25")))

	account, err := svc.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, account.CurrentBalance.Equal(dec(t, "125.25")))
}

func TestRecordTransactionGuards(t *testing.T) {
	repo := newMemoryBankRepo()
	svc := NewService(repo)
	ctx := context.Background()
	a := openAccount(t, svc, "22222222", "100.00")

	_, err := svc.RecordTransaction(ctx, RecordTransactionInput{
		BankAccountID: a.ID, Amount: decimal.Zero, Type: TxnReceive,
	})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = svc.RecordTransaction(ctx, RecordTransactionInput{
		BankAccountID: a.ID, Amount: dec(t, "10.00"), Type: TxnTransfer,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.SetAccountActive(ctx, a.ID, false))
	_, err = svc.RecordTransaction(ctx, RecordTransactionInput{
		BankAccountID: a.ID, Amount: dec(t, "10.00"), Type: TxnReceive,
	})
	require.ErrorIs(t, err, shared.ErrStatePrecondition)
}

func TestTransferMovesBothBalances(t *testing.T) {
	repo := newMemoryBankRepo()
	svc := NewService(repo)
	ctx := context.Background()
	from := openAccount(t, svc, "33333333", "500.00")
	to := openAccount(t, svc, "44444444", "50.00")

	legs, err := svc.Transfer(ctx, from.ID, to.ID, dec(t, "120.00"), "monthly sweep", 0)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	require.Equal(t, legs[0].ReferenceNumber, legs[1].ReferenceNumber)
	require.True(t, legs[0].Amount.Equal(dec(t, "-120.00")))
	require.True(t, legs[1].Amount.Equal(dec(t, "120.00")))

	fromAfter, err := svc.GetAccount(ctx, from.ID)
	require.NoError(t, err)
	require.True(t, fromAfter.CurrentBalance.Equal(dec(t, "380.00")))
	toAfter, err := svc.GetAccount(ctx, to.ID)
	require.NoError(t, err)
	require.True(t, toAfter.CurrentBalance.Equal(dec(t, "170.00")))

	_, err = svc.Transfer(ctx, from.ID, from.ID, dec(t, "10.00"), "", 0)
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Transfer(ctx, from.ID, to.ID, decimal.Zero, "", 0)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestDeleteTransactionReversesBalance(t *testing.T) {
	repo := newMemoryBankRepo()
	svc := NewService(repo)
	ctx := context.Background()
	a := openAccount(t, svc, "55555555", "100.00")

	txn, err := svc.RecordTransaction(ctx, RecordTransactionInput{
		BankAccountID: a.ID, Amount: dec(t, "30.00"), Type: TxnPayment,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, txn.ID))
	account, err := svc.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, account.CurrentBalance.Equal(dec(t, "100.00")))
}

func TestReconciledTransactionIsImmutable(t *testing.T) {
	repo := newMemoryBankRepo()
	svc := NewService(repo)
	ctx := context.Background()
	a := openAccount(t, svc, "66666666", "100.00")

	txn, err := svc.RecordTransaction(ctx, RecordTransactionInput{
		BankAccountID: a.ID, Amount: dec(t, "30.00"), Type: TxnDeposit,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetReconciled(ctx, txn.ID, true))
	err = svc.DeleteTransaction(ctx, txn.ID)
	require.ErrorIs(t, err, shared.ErrStatePrecondition)

	require.NoError(t, svc.SetReconciled(ctx, txn.ID, false))
	require.NoError(t, svc.DeleteTransaction(ctx, txn.ID))
}

func TestDeleteAccountBlockedByTransactions(t *testing.T) {
	repo := newMemoryBankRepo()
	svc := NewService(repo)
	ctx := context.Background()
	a := openAccount(t, svc, "77777777", "100.00")

	txn, err := svc.RecordTransaction(ctx, RecordTransactionInput{
		BankAccountID: a.ID, Amount: dec(t, "5.00"), Type: TxnInterest,
	})
	require.NoError(t, err)

	err = svc.DeleteAccount(ctx, a.ID)
	require.ErrorIs(t, err, shared.ErrStatePrecondition)

	require.NoError(t, svc.DeleteTransaction(ctx, txn.ID))
	require.NoError(t, svc.DeleteAccount(ctx, a.ID))
}
