package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/eretailgoals/books-backend/internal/invoices"
)

type fakeInvoiceStats struct {
	calls    int
	total    int64
	byStatus map[invoices.Status]int64
}

func (f *fakeInvoiceStats) Count(context.Context) (int64, error) {
	f.calls++
	return f.total, nil
}

func (f *fakeInvoiceStats) CountByStatus(_ context.Context, status invoices.Status) (int64, error) {
	f.calls++
	return f.byStatus[status], nil
}

func (f *fakeInvoiceStats) TotalOutstanding(context.Context) (decimal.Decimal, error) {
	f.calls++
	return decimal.NewFromFloat(1234.56), nil
}

func (f *fakeInvoiceStats) TotalAmountByDateRange(context.Context, time.Time, time.Time) (decimal.Decimal, error) {
	f.calls++
	return decimal.NewFromInt(900), nil
}

type fakeBankStats struct {
	calls int
}

func (f *fakeBankStats) TotalBalance(context.Context) (decimal.Decimal, error) {
	f.calls++
	return decimal.NewFromInt(5000), nil
}

type fakeTopClients struct {
	calls int
	rows  []ClientBalance
}

func (f *fakeTopClients) TopClients(_ context.Context, limit int) ([]ClientBalance, error) {
	f.calls++
	if limit < len(f.rows) {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func newTestService(t *testing.T) (*Service, *fakeInvoiceStats, *fakeBankStats, *fakeTopClients) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	invoiceStats := &fakeInvoiceStats{
		total: 12,
		byStatus: map[invoices.Status]int64{
			invoices.StatusOpen:        5,
			invoices.StatusPartialPaid: 2,
			invoices.StatusPaid:        3,
			invoices.StatusOverdue:     1,
			invoices.StatusCancelled:   1,
		},
	}
	bankStats := &fakeBankStats{}
	topClients := &fakeTopClients{rows: []ClientBalance{
		{UserID: 1, Name: "Ada Byron", Outstanding: decimal.NewFromInt(800), Invoices: 3},
		{UserID: 2, Name: "Grace Hopper", Outstanding: decimal.NewFromInt(400), Invoices: 1},
	}}
	svc := NewService(invoiceStats, bankStats, topClients, NewCache(client, time.Minute))
	return svc, invoiceStats, bankStats, topClients
}

func TestSummaryAggregates(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(12), summary.TotalInvoices)
	require.Equal(t, int64(5), summary.StatusCounts["OPEN"])
	require.Equal(t, int64(2), summary.StatusCounts["PARTIAL_PAID"])
	require.Equal(t, int64(1), summary.StatusCounts["OVERDUE"])
	require.True(t, summary.TotalOutstanding.Equal(decimal.NewFromFloat(1234.56)))
	require.True(t, summary.TotalBankBalance.Equal(decimal.NewFromInt(5000)))
	require.False(t, summary.GeneratedAt.IsZero())
}

func TestSummaryServedFromCache(t *testing.T) {
	svc, invoiceStats, bankStats, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Summary(ctx)
	require.NoError(t, err)
	invoiceCalls, bankCalls := invoiceStats.calls, bankStats.calls

	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, invoiceCalls, invoiceStats.calls)
	require.Equal(t, bankCalls, bankStats.calls)

	svc.InvalidateCache(ctx)
	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.Greater(t, invoiceStats.calls, invoiceCalls)
}

func TestTopClientsCachesDefaultLimitOnly(t *testing.T) {
	svc, _, _, topClients := newTestService(t)
	ctx := context.Background()

	rows, err := svc.TopClients(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	_, err = svc.TopClients(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 1, topClients.calls)

	_, err = svc.TopClients(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, topClients.calls)
}
