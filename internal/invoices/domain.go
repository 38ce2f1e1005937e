package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates invoice statuses.
type Status string

const (
	StatusOpen        Status = "OPEN"
	StatusPartialPaid Status = "PARTIAL_PAID"
	StatusPaid        Status = "PAID"
	StatusOverdue     Status = "OVERDUE"
	StatusCancelled   Status = "CANCELLED"
)

// Type enumerates invoice document types.
type Type string

const (
	TypeStandard   Type = "STANDARD"
	TypeCreditNote Type = "CREDIT_NOTE"
	TypeProforma   Type = "PROFORMA"
	TypeRecurring  Type = "RECURRING"
)

// InvoiceItem is a single line on an invoice. Items are owned by their invoice
// and carry no back-reference to it.
type InvoiceItem struct {
	ID              int64           `json:"id"`
	Description     string          `json:"description"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	VATRatePercent  decimal.Decimal `json:"vat_rate_percent"`
	ItemCode        string          `json:"item_code,omitempty"`
	Unit            string          `json:"unit,omitempty"`
	LineTotal       decimal.Decimal `json:"line_total"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Invoice model. Amount is the net subtotal; VATAmount and PaidAmount default
// to zero. Status is a cached value maintained by explicit transitions, not by
// every mutation.
type Invoice struct {
	ID          int64           `json:"id"`
	AdminID     int64           `json:"admin_id,omitempty"`
	Number      string          `json:"invoice_number"`
	InvoiceDate time.Time       `json:"invoice_date"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Type        Type            `json:"invoice_type"`
	Note        string          `json:"invoice_note,omitempty"`
	Amount      decimal.Decimal `json:"invoice_amount"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
	PaidAmount  decimal.Decimal `json:"invoice_paid_amount"`
	Status      Status          `json:"status"`
	UserID      int64           `json:"user_id"`
	Items       []InvoiceItem   `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TotalAmount is the gross amount owed: net subtotal plus VAT.
func (inv Invoice) TotalAmount() decimal.Decimal {
	return inv.Amount.Add(inv.VATAmount)
}

// OutstandingAmount is the total amount minus what has been paid.
func (inv Invoice) OutstandingAmount() decimal.Decimal {
	return inv.TotalAmount().Sub(inv.PaidAmount)
}

// ListFilters narrows invoice listings.
type ListFilters struct {
	UserID  int64
	AdminID int64
	Status  Status
	From    *time.Time
	To      *time.Time
	Search  string
	Page    int
	PerPage int
}

// CreateInvoiceInput for creating invoices.
type CreateInvoiceInput struct {
	AdminID     int64
	Number      string
	InvoiceDate time.Time
	DueDate     *time.Time
	Type        Type
	Note        string
	Amount      decimal.Decimal
	VATAmount   decimal.Decimal
	UserID      int64
	Items       []ItemInput
}

// UpdateInvoiceInput for updating invoice header fields.
type UpdateInvoiceInput struct {
	Number      string
	InvoiceDate time.Time
	DueDate     *time.Time
	Type        Type
	Note        string
	Amount      decimal.Decimal
	VATAmount   decimal.Decimal
}

// ItemInput for adding a line to an invoice.
type ItemInput struct {
	Description     string
	Quantity        int64
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	VATRatePercent  decimal.Decimal
	ItemCode        string
	Unit            string
}
