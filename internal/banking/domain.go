package banking

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates supported bank account kinds.
type AccountType string

const (
	AccountCurrent    AccountType = "CURRENT"
	AccountSavings    AccountType = "SAVINGS"
	AccountCreditCard AccountType = "CREDIT_CARD"
	AccountLoan       AccountType = "LOAN"
)

// BankAccount mirrors a real-world account. CurrentBalance is maintained by
// the transaction recorder and is never written directly by API clients.
type BankAccount struct {
	ID             int64           `json:"id"`
	AdminID        int64           `json:"admin_id,omitempty"`
	AccountName    string          `json:"account_name"`
	AccountType    AccountType     `json:"account_type"`
	AccountNumber  string          `json:"account_number"`
	SortCode       string          `json:"sort_code,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TransactionType enumerates money movement kinds.
type TransactionType string

const (
	TxnReceive    TransactionType = "RECEIVE"
	TxnPayment    TransactionType = "PAYMENT"
	TxnTransfer   TransactionType = "TRANSFER"
	TxnDeposit    TransactionType = "DEPOSIT"
	TxnWithdrawal TransactionType = "WITHDRAWAL"
	TxnFee        TransactionType = "FEE"
	TxnInterest   TransactionType = "INTEREST"
)

// IsCredit reports whether the type increases the account balance.
func (t TransactionType) IsCredit() bool {
	return t == TxnReceive || t == TxnDeposit || t == TxnInterest
}

// IsDebit reports whether the type decreases the account balance.
func (t TransactionType) IsDebit() bool {
	return t == TxnPayment || t == TxnWithdrawal || t == TxnFee
}

// Transaction records a single movement on a bank account. EndingBalance is
// the account balance snapshot taken right after the movement was applied.
type Transaction struct {
	ID              int64           `json:"id"`
	AdminID         int64           `json:"admin_id,omitempty"`
	Date            time.Time       `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	Type            TransactionType `json:"type"`
	ExpenseType     string          `json:"expense_type,omitempty"`
	ReferenceNumber string          `json:"reference_number"`
	Note            string          `json:"note,omitempty"`
	IsReconciled    bool            `json:"is_reconciled"`
	EndingBalance   decimal.Decimal `json:"ending_balance"`
	BankAccountID   int64           `json:"bank_account_id"`
	UserID          *int64          `json:"user_id,omitempty"`
	InvoiceID       *int64          `json:"invoice_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SignedAmount is the balance delta the transaction applied.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type.IsDebit() {
		return t.Amount.Neg()
	}
	return t.Amount
}

// CreateAccountInput for opening accounts.
type CreateAccountInput struct {
	AdminID        int64
	AccountName    string
	AccountType    AccountType
	AccountNumber  string
	SortCode       string
	OpeningBalance decimal.Decimal
}

// UpdateAccountInput for renaming accounts. Balances are not editable.
type UpdateAccountInput struct {
	AccountName string
	AccountType AccountType
	SortCode    string
}

// RecordTransactionInput for recording a single credit or debit.
type RecordTransactionInput struct {
	AdminID         int64
	BankAccountID   int64
	Date            time.Time
	Amount          decimal.Decimal
	Type            TransactionType
	ExpenseType     string
	ReferenceNumber string
	Note            string
	UserID          *int64
	InvoiceID       *int64
}

// TransactionFilters narrows transaction listings.
type TransactionFilters struct {
	BankAccountID int64
	UserID        int64
	InvoiceID     int64
	Type          TransactionType
	IsReconciled  *bool
	From          *time.Time
	To            *time.Time
	Page          int
	PerPage       int
}
