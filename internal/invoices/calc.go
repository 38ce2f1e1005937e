package invoices

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eretailgoals/books-backend/internal/shared"
)

var hundred = decimal.NewFromInt(100)

// ItemTotals carries the decomposed amounts for one invoice line. All values
// are exact decimals; percentages divide by 100 with decimal division.
type ItemTotals struct {
	SubTotal       decimal.Decimal `json:"sub_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

// RecomputeItemTotal derives the line amounts from quantity, unit price,
// discount and VAT rate. Pure function: callers persist the result. A discount
// above 100 is not rejected and yields a negative net amount.
func RecomputeItemTotal(item InvoiceItem) ItemTotals {
	subTotal := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
	discountAmount := subTotal.Mul(item.DiscountPercent).Div(hundred)
	netAmount := subTotal.Sub(discountAmount)
	vatAmount := netAmount.Mul(item.VATRatePercent).Div(hundred)
	return ItemTotals{
		SubTotal:       subTotal,
		DiscountAmount: discountAmount,
		NetAmount:      netAmount,
		VATAmount:      vatAmount,
		LineTotal:      netAmount.Add(vatAmount),
	}
}

// RecomputeInvoiceTotals sums net and VAT amounts across the items. When the
// collection is empty ok is false and the caller-supplied header amounts stand;
// an invoice without items is never forced to zero.
func RecomputeInvoiceTotals(items []InvoiceItem) (amount, vatAmount decimal.Decimal, ok bool) {
	if len(items) == 0 {
		return decimal.Zero, decimal.Zero, false
	}
	amount = decimal.Zero
	vatAmount = decimal.Zero
	for _, item := range items {
		totals := RecomputeItemTotal(item)
		amount = amount.Add(totals.NetAmount)
		vatAmount = vatAmount.Add(totals.VATAmount)
	}
	return amount, vatAmount, true
}

// ApplyPayment posts amount against the invoice. The full amount posts or the
// operation is rejected; there is no clipping to the outstanding balance. The
// total is computed fresh at call time, including any pending VAT amount.
func ApplyPayment(inv Invoice, amount decimal.Decimal, asOf time.Time) (Invoice, error) {
	if amount.Sign() <= 0 {
		return Invoice{}, fmt.Errorf("payment of %s: %w", amount, shared.ErrInvalidAmount)
	}
	newPaid := inv.PaidAmount.Add(amount)
	if newPaid.GreaterThan(inv.TotalAmount()) {
		return Invoice{}, fmt.Errorf("payment of %s against outstanding %s: %w",
			amount, inv.OutstandingAmount(), shared.ErrExceedsBalance)
	}
	inv.PaidAmount = newPaid
	inv.Status = DeriveStatus(inv, asOf)
	return inv, nil
}

// DeriveStatus recomputes the cached status. First match wins: settled beats
// partial, partial beats overdue. Callers must never invoke this on a cancelled
// invoice; cancellation is a separate, sticky transition.
func DeriveStatus(inv Invoice, asOf time.Time) Status {
	total := inv.TotalAmount()
	switch {
	case total.Sub(inv.PaidAmount).Sign() <= 0:
		return StatusPaid
	case inv.PaidAmount.Sign() > 0 && inv.PaidAmount.LessThan(total):
		return StatusPartialPaid
	case inv.DueDate != nil && asOf.After(*inv.DueDate):
		return StatusOverdue
	default:
		return StatusOpen
	}
}

// Cancel transitions the invoice to CANCELLED unconditionally, regardless of
// the paid amount. Cancelled is terminal.
func Cancel(inv Invoice) Invoice {
	inv.Status = StatusCancelled
	return inv
}

// NextInvoiceNumber formats the next invoice number from the existing invoice
// count. Count-then-format; uniqueness under concurrent creation is the
// store's responsibility.
func NextInvoiceNumber(existingCount int64, year int) string {
	return fmt.Sprintf("INV-%d-%06d", year, existingCount+1)
}
