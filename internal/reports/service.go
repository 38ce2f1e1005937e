package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/eretailgoals/books-backend/internal/invoices"
)

const (
	summaryCacheKey    = "reports:summary"
	topClientsCacheKey = "reports:top_clients"
)

// InvoiceStats is the slice of invoice data the dashboard needs.
type InvoiceStats interface {
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status invoices.Status) (int64, error)
	TotalOutstanding(ctx context.Context) (decimal.Decimal, error)
	TotalAmountByDateRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

// BankStats is the slice of banking data the dashboard needs.
type BankStats interface {
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
}

// TopClientLister ranks clients by outstanding balance.
type TopClientLister interface {
	TopClients(ctx context.Context, limit int) ([]ClientBalance, error)
}

// Summary is the back-office dashboard payload.
type Summary struct {
	TotalInvoices     int64            `json:"total_invoices"`
	StatusCounts      map[string]int64 `json:"status_counts"`
	TotalOutstanding  decimal.Decimal  `json:"total_outstanding"`
	InvoicedThisMonth decimal.Decimal  `json:"invoiced_this_month"`
	TotalBankBalance  decimal.Decimal  `json:"total_bank_balance"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// Service assembles reports, caching rendered payloads.
type Service struct {
	invoiceStats InvoiceStats
	bankStats    BankStats
	topClients   TopClientLister
	cache        *Cache
}

func NewService(invoiceStats InvoiceStats, bankStats BankStats, topClients TopClientLister, cache *Cache) *Service {
	return &Service{
		invoiceStats: invoiceStats,
		bankStats:    bankStats,
		topClients:   topClients,
		cache:        cache,
	}
}

var summaryStatuses = []invoices.Status{
	invoices.StatusOpen,
	invoices.StatusPartialPaid,
	invoices.StatusPaid,
	invoices.StatusOverdue,
	invoices.StatusCancelled,
}

// Summary fans the independent aggregate queries out concurrently and caches
// the assembled result.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var cached Summary
	if s.cache.Get(ctx, summaryCacheKey, &cached) {
		return cached, nil
	}

	summary := Summary{StatusCounts: make(map[string]int64, len(summaryStatuses))}
	counts := make([]int64, len(summaryStatuses))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.invoiceStats.Count(gctx)
		summary.TotalInvoices = n
		return err
	})
	for i, status := range summaryStatuses {
		g.Go(func() error {
			n, err := s.invoiceStats.CountByStatus(gctx, status)
			counts[i] = n
			return err
		})
	}
	g.Go(func() error {
		total, err := s.invoiceStats.TotalOutstanding(gctx)
		summary.TotalOutstanding = total
		return err
	})
	g.Go(func() error {
		now := time.Now()
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		total, err := s.invoiceStats.TotalAmountByDateRange(gctx, from, now)
		summary.InvoicedThisMonth = total
		return err
	})
	g.Go(func() error {
		total, err := s.bankStats.TotalBalance(gctx)
		summary.TotalBankBalance = total
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	for i, status := range summaryStatuses {
		summary.StatusCounts[string(status)] = counts[i]
	}
	summary.GeneratedAt = time.Now()
	s.cache.Set(ctx, summaryCacheKey, summary)
	return summary, nil
}

// TopClients returns the clients owing the most, cached like the summary.
func (s *Service) TopClients(ctx context.Context, limit int) ([]ClientBalance, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var cached []ClientBalance
	if limit == 10 && s.cache.Get(ctx, topClientsCacheKey, &cached) {
		return cached, nil
	}
	clients, err := s.topClients.TopClients(ctx, limit)
	if err != nil {
		return nil, err
	}
	if limit == 10 {
		s.cache.Set(ctx, topClientsCacheKey, clients)
	}
	return clients, nil
}

// InvalidateCache drops cached report payloads after bulk updates.
func (s *Service) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx, summaryCacheKey, topClientsCacheKey)
}
