package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eretailgoals/books-backend/internal/shared"
)

// RepositoryPort defines data access methods for invoices.
type RepositoryPort interface {
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	GetByNumber(ctx context.Context, number string) (Invoice, error)
	Update(ctx context.Context, inv Invoice) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filters ListFilters) ([]Invoice, int, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error)
	ListOutstanding(ctx context.Context) ([]Invoice, error)
	ListRecent(ctx context.Context, limit int) ([]Invoice, error)
	ListDueWithin(ctx context.Context, from, to time.Time) ([]Invoice, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	TotalOutstanding(ctx context.Context) (decimal.Decimal, error)
	TotalOutstandingByUser(ctx context.Context, userID int64) (decimal.Decimal, error)
	TotalAmountByDateRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations that must run inside a transaction so
// read-guard-write sequences are atomic under concurrent posting.
type TxRepository interface {
	Get(ctx context.Context, id int64) (Invoice, error)
	UpdatePayment(ctx context.Context, id int64, paid decimal.Decimal, status Status) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	InsertItem(ctx context.Context, invoiceID int64, item InvoiceItem) (InvoiceItem, error)
	DeleteItem(ctx context.Context, invoiceID, itemID int64) (bool, error)
	UpdateTotals(ctx context.Context, invoiceID int64, amount, vatAmount decimal.Decimal) error
}

// Service handles invoice business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create stores a new invoice. Number uniqueness is checked up front and again
// by the store's unique constraint. Totals are derived from items when the
// invoice carries any; otherwise the supplied header amounts stand.
func (s *Service) Create(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	if strings.TrimSpace(input.Number) == "" {
		return Invoice{}, fmt.Errorf("invoice number is required: %w", shared.ErrValidation)
	}
	if input.UserID == 0 {
		return Invoice{}, fmt.Errorf("user is required: %w", shared.ErrValidation)
	}
	if input.Amount.Sign() < 0 {
		return Invoice{}, fmt.Errorf("invoice amount must be non-negative: %w", shared.ErrInvalidAmount)
	}
	if input.VATAmount.Sign() < 0 {
		return Invoice{}, fmt.Errorf("vat amount must be non-negative: %w", shared.ErrInvalidAmount)
	}

	exists, err := s.repo.ExistsByNumber(ctx, input.Number)
	if err != nil {
		return Invoice{}, err
	}
	if exists {
		return Invoice{}, fmt.Errorf("invoice number %s: %w", input.Number, shared.ErrDuplicateKey)
	}

	inv := Invoice{
		AdminID:     input.AdminID,
		Number:      input.Number,
		InvoiceDate: input.InvoiceDate,
		DueDate:     input.DueDate,
		Type:        input.Type,
		Note:        input.Note,
		Amount:      input.Amount,
		VATAmount:   input.VATAmount,
		PaidAmount:  decimal.Zero,
		Status:      StatusOpen,
		UserID:      input.UserID,
	}
	if inv.InvoiceDate.IsZero() {
		inv.InvoiceDate = time.Now()
	}
	if inv.Type == "" {
		inv.Type = TypeStandard
	}

	for _, in := range input.Items {
		item, err := buildItem(in)
		if err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	if amount, vat, ok := RecomputeInvoiceTotals(inv.Items); ok {
		inv.Amount = amount
		inv.VATAmount = vat
	}

	return s.repo.Create(ctx, inv)
}

// Update replaces the invoice header fields and re-derives the cached status.
// Cancelled invoices are terminal and cannot be edited.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInvoiceInput) (Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status == StatusCancelled {
		return Invoice{}, fmt.Errorf("invoice %s is cancelled: %w", inv.Number, shared.ErrStatePrecondition)
	}
	if input.Amount.Sign() < 0 || input.VATAmount.Sign() < 0 {
		return Invoice{}, fmt.Errorf("amounts must be non-negative: %w", shared.ErrInvalidAmount)
	}

	if input.Number != "" && input.Number != inv.Number {
		exists, err := s.repo.ExistsByNumber(ctx, input.Number)
		if err != nil {
			return Invoice{}, err
		}
		if exists {
			return Invoice{}, fmt.Errorf("invoice number %s: %w", input.Number, shared.ErrDuplicateKey)
		}
		inv.Number = input.Number
	}

	if !input.InvoiceDate.IsZero() {
		inv.InvoiceDate = input.InvoiceDate
	}
	inv.DueDate = input.DueDate
	if input.Type != "" {
		inv.Type = input.Type
	}
	inv.Note = input.Note
	inv.Amount = input.Amount
	inv.VATAmount = input.VATAmount
	inv.Status = DeriveStatus(inv, time.Now())

	if err := s.repo.Update(ctx, inv); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Get returns an invoice with its items.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber returns an invoice by its unique number.
func (s *Service) GetByNumber(ctx context.Context, number string) (Invoice, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns invoices matching the filters plus pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Invoice, shared.Pagination, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PerPage < 1 {
		filters.PerPage = 20
	}
	invs, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return invs, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// ListOverdue returns invoices past their due date that are neither paid nor
// cancelled.
func (s *Service) ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return s.repo.ListOverdue(ctx, asOf)
}

// ListOutstanding returns invoices that still owe money.
func (s *Service) ListOutstanding(ctx context.Context) ([]Invoice, error) {
	return s.repo.ListOutstanding(ctx)
}

// ListRecent returns the most recently created invoices.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.ListRecent(ctx, limit)
}

// ListDueWithinDays returns open invoices falling due in the next N days.
func (s *Service) ListDueWithinDays(ctx context.Context, days int) ([]Invoice, error) {
	now := time.Now()
	return s.repo.ListDueWithin(ctx, now, now.AddDate(0, 0, days))
}

// Delete removes an invoice. Deletion is forbidden once any payment has been
// recorded; cancellation is the required path instead.
func (s *Service) Delete(ctx context.Context, id int64) error {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.PaidAmount.Sign() > 0 {
		return fmt.Errorf("invoice %s has recorded payments, cancel it instead: %w", inv.Number, shared.ErrStatePrecondition)
	}
	return s.repo.Delete(ctx, id)
}

// Cancel transitions an invoice to CANCELLED. There is no guard on the paid
// amount; an invoice with payments can still be cancelled.
func (s *Service) Cancel(ctx context.Context, id int64) (Invoice, error) {
	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		inv = Cancel(inv)
		if err := tx.UpdateStatus(ctx, id, inv.Status); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return out, nil
}

// AddPayment applies a payment to the invoice inside a transaction so the
// read-guard-write sequence cannot lose updates under concurrent posting.
func (s *Service) AddPayment(ctx context.Context, id int64, amount decimal.Decimal) (Invoice, error) {
	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusCancelled {
			return fmt.Errorf("invoice %s is cancelled: %w", inv.Number, shared.ErrStatePrecondition)
		}
		updated, err := ApplyPayment(inv, amount, time.Now())
		if err != nil {
			return err
		}
		if err := tx.UpdatePayment(ctx, id, updated.PaidAmount, updated.Status); err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return out, nil
}

// AddItem appends a line to the invoice's owned collection and recomputes the
// header totals from the items.
func (s *Service) AddItem(ctx context.Context, invoiceID int64, input ItemInput) (Invoice, error) {
	item, err := buildItem(input)
	if err != nil {
		return Invoice{}, err
	}
	var out Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.Get(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == StatusCancelled {
			return fmt.Errorf("invoice %s is cancelled: %w", inv.Number, shared.ErrStatePrecondition)
		}
		stored, err := tx.InsertItem(ctx, invoiceID, item)
		if err != nil {
			return err
		}
		inv.Items = append(inv.Items, stored)
		if amount, vat, ok := RecomputeInvoiceTotals(inv.Items); ok {
			inv.Amount = amount
			inv.VATAmount = vat
			if err := tx.UpdateTotals(ctx, invoiceID, amount, vat); err != nil {
				return err
			}
		}
		out = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return out, nil
}

// RemoveItem detaches a line from the invoice and recomputes the header totals
// from the remaining items. Removing the last item leaves the totals untouched.
func (s *Service) RemoveItem(ctx context.Context, invoiceID, itemID int64) (Invoice, error) {
	var out Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.Get(ctx, invoiceID)
		if err != nil {
			return err
		}
		removed, err := tx.DeleteItem(ctx, invoiceID, itemID)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("item %d on invoice %s: %w", itemID, inv.Number, shared.ErrItemNotFound)
		}
		kept := inv.Items[:0]
		for _, item := range inv.Items {
			if item.ID != itemID {
				kept = append(kept, item)
			}
		}
		inv.Items = kept
		if amount, vat, ok := RecomputeInvoiceTotals(inv.Items); ok {
			inv.Amount = amount
			inv.VATAmount = vat
			if err := tx.UpdateTotals(ctx, invoiceID, amount, vat); err != nil {
				return err
			}
		}
		out = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return out, nil
}

// NextNumber formats the next invoice number from the current invoice count.
// The count-then-format sequence is not serialised here; the unique constraint
// on the number column is the final arbiter under concurrent creation.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return "", err
	}
	return NextInvoiceNumber(count, time.Now().Year()), nil
}

// CountByStatus counts invoices in the given status.
func (s *Service) CountByStatus(ctx context.Context, status Status) (int64, error) {
	return s.repo.CountByStatus(ctx, status)
}

// TotalOutstanding sums the outstanding amount across all invoices.
func (s *Service) TotalOutstanding(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.TotalOutstanding(ctx)
}

// TotalOutstandingByUser sums the outstanding amount for one user.
func (s *Service) TotalOutstandingByUser(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.repo.TotalOutstandingByUser(ctx, userID)
}

// TotalAmountByDateRange sums gross invoice amounts over a date range.
func (s *Service) TotalAmountByDateRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	return s.repo.TotalAmountByDateRange(ctx, from, to)
}

// RefreshOverdueStatuses re-derives the cached status for invoices past their
// due date and returns how many were flipped to OVERDUE. Partially paid
// invoices keep PARTIAL_PAID per the derivation priority.
func (s *Service) RefreshOverdueStatuses(ctx context.Context, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	overdue, err := s.repo.ListOverdue(ctx, asOf)
	if err != nil {
		return 0, err
	}
	flipped := 0
	for _, inv := range overdue {
		status := DeriveStatus(inv, asOf)
		if status == inv.Status {
			continue
		}
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.UpdateStatus(ctx, inv.ID, status)
		})
		if err != nil {
			return flipped, err
		}
		if status == StatusOverdue {
			flipped++
		}
	}
	return flipped, nil
}

func buildItem(input ItemInput) (InvoiceItem, error) {
	if strings.TrimSpace(input.Description) == "" {
		return InvoiceItem{}, fmt.Errorf("item description is required: %w", shared.ErrValidation)
	}
	if input.Quantity < 1 {
		return InvoiceItem{}, fmt.Errorf("quantity must be at least 1: %w", shared.ErrInvalidAmount)
	}
	if input.UnitPrice.Sign() < 0 {
		return InvoiceItem{}, fmt.Errorf("unit price must be non-negative: %w", shared.ErrInvalidAmount)
	}
	if input.DiscountPercent.Sign() < 0 || input.VATRatePercent.Sign() < 0 {
		return InvoiceItem{}, fmt.Errorf("percentages must be non-negative: %w", shared.ErrInvalidAmount)
	}
	item := InvoiceItem{
		Description:     input.Description,
		Quantity:        input.Quantity,
		UnitPrice:       input.UnitPrice,
		DiscountPercent: input.DiscountPercent,
		VATRatePercent:  input.VATRatePercent,
		ItemCode:        input.ItemCode,
		Unit:            input.Unit,
	}
	item.LineTotal = RecomputeItemTotal(item).LineTotal
	return item, nil
}
