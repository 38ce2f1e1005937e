package invoices

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/eretailgoals/books-backend/internal/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimalEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s got %s", want, got)
}

func TestRecomputeItemTotalBreakdown(t *testing.T) {
	item := InvoiceItem{
		Quantity:        3,
		UnitPrice:       dec("10.00"),
		DiscountPercent: dec("10"),
		VATRatePercent:  dec("20"),
	}

	totals := RecomputeItemTotal(item)

	requireDecimalEqual(t, "30.00", totals.SubTotal)
	requireDecimalEqual(t, "3.00", totals.DiscountAmount)
	requireDecimalEqual(t, "27.00", totals.NetAmount)
	requireDecimalEqual(t, "5.40", totals.VATAmount)
	requireDecimalEqual(t, "32.40", totals.LineTotal)
}

func TestRecomputeItemTotalDefaults(t *testing.T) {
	item := InvoiceItem{Quantity: 2, UnitPrice: dec("19.99")}

	totals := RecomputeItemTotal(item)

	requireDecimalEqual(t, "39.98", totals.SubTotal)
	requireDecimalEqual(t, "0", totals.DiscountAmount)
	requireDecimalEqual(t, "39.98", totals.NetAmount)
	requireDecimalEqual(t, "0", totals.VATAmount)
	requireDecimalEqual(t, "39.98", totals.LineTotal)
}

func TestRecomputeItemTotalIsIdempotent(t *testing.T) {
	item := InvoiceItem{
		Quantity:        7,
		UnitPrice:       dec("3.33"),
		DiscountPercent: dec("12.5"),
		VATRatePercent:  dec("17.5"),
	}

	first := RecomputeItemTotal(item)
	second := RecomputeItemTotal(item)

	require.True(t, first.LineTotal.Equal(second.LineTotal))
	require.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
	require.True(t, first.VATAmount.Equal(second.VATAmount))
}

func TestRecomputeItemTotalDiscountAboveHundredGoesNegative(t *testing.T) {
	item := InvoiceItem{Quantity: 1, UnitPrice: dec("50.00"), DiscountPercent: dec("150")}

	totals := RecomputeItemTotal(item)

	requireDecimalEqual(t, "-25.00", totals.NetAmount)
	requireDecimalEqual(t, "-25.00", totals.LineTotal)
}

func TestRecomputeInvoiceTotalsSumsItems(t *testing.T) {
	items := []InvoiceItem{
		{Quantity: 3, UnitPrice: dec("10.00"), DiscountPercent: dec("10"), VATRatePercent: dec("20")},
		{Quantity: 1, UnitPrice: dec("100.00"), VATRatePercent: dec("5")},
	}

	amount, vat, ok := RecomputeInvoiceTotals(items)

	require.True(t, ok)
	requireDecimalEqual(t, "127.00", amount)
	requireDecimalEqual(t, "10.40", vat)
}

func TestRecomputeInvoiceTotalsEmptyLeavesCallerValues(t *testing.T) {
	_, _, ok := RecomputeInvoiceTotals(nil)
	require.False(t, ok)
}

func TestApplyPaymentRejectsNonPositive(t *testing.T) {
	inv := Invoice{Amount: dec("100.00"), PaidAmount: decimal.Zero, Status: StatusOpen}

	_, err := ApplyPayment(inv, decimal.Zero, time.Now())
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = ApplyPayment(inv, dec("-5"), time.Now())
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestApplyPaymentRejectsOverpayment(t *testing.T) {
	inv := Invoice{Amount: dec("100.00"), PaidAmount: dec("40.00"), Status: StatusPartialPaid}

	_, err := ApplyPayment(inv, dec("60.01"), time.Now())
	require.ErrorIs(t, err, shared.ErrExceedsBalance)
}

func TestApplyPaymentSettlesExactly(t *testing.T) {
	inv := Invoice{Amount: dec("100.00"), PaidAmount: decimal.Zero, Status: StatusOpen}

	paid, err := ApplyPayment(inv, dec("100.00"), time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	requireDecimalEqual(t, "0.00", paid.OutstandingAmount())

	_, err = ApplyPayment(paid, dec("0.01"), time.Now())
	require.ErrorIs(t, err, shared.ErrExceedsBalance)
}

func TestApplyPaymentIncludesPendingVAT(t *testing.T) {
	inv := Invoice{Amount: dec("100.00"), VATAmount: dec("20.00"), Status: StatusOpen}

	paid, err := ApplyPayment(inv, dec("120.00"), time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
}

func TestDeriveStatusPartialBeatsOverdue(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	inv := Invoice{
		Amount:     dec("100.00"),
		PaidAmount: dec("40.00"),
		DueDate:    &yesterday,
	}

	require.Equal(t, StatusPartialPaid, DeriveStatus(inv, time.Now()))
}

func TestDeriveStatusOverdueWhenUnpaid(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	inv := Invoice{Amount: dec("100.00"), DueDate: &yesterday}

	require.Equal(t, StatusOverdue, DeriveStatus(inv, time.Now()))
}

func TestDeriveStatusOpenWithoutDueDate(t *testing.T) {
	inv := Invoice{Amount: dec("100.00")}

	require.Equal(t, StatusOpen, DeriveStatus(inv, time.Now()))
}

func TestDeriveStatusDueDateNotStrictlyPast(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := Invoice{Amount: dec("100.00"), DueDate: &due}

	require.Equal(t, StatusOpen, DeriveStatus(inv, due))
	require.Equal(t, StatusOverdue, DeriveStatus(inv, due.Add(time.Second)))
}

func TestCancelIsUnconditional(t *testing.T) {
	inv := Invoice{Amount: dec("100.00"), PaidAmount: dec("50.00"), Status: StatusPartialPaid}

	require.Equal(t, StatusCancelled, Cancel(inv).Status)
}

func TestNextInvoiceNumberFormat(t *testing.T) {
	require.Equal(t, "INV-2026-000001", NextInvoiceNumber(0, 2026))
	require.Equal(t, "INV-2026-000043", NextInvoiceNumber(42, 2026))
	require.Equal(t, "INV-2031-1000000", NextInvoiceNumber(999999, 2031))
}
