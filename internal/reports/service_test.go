package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/internal/shared"
)

var (
	admin  = shared.NewPrincipal(1, true, nil)
	viewer = shared.NewPrincipal(2, false, []string{shared.PermReportsView})
	clerk  = shared.NewPrincipal(3, false, []string{shared.PermSalesView})
)

type fakeStore struct {
	sales, purchases, expenses Totals
	customers                  []CustomerSales
	products                   []ProductSales
	gotLimit                   int
	err                        error
}

func (f *fakeStore) SalesTotals(context.Context, shared.DateRange) (Totals, error) {
	return f.sales, f.err
}

func (f *fakeStore) PurchaseTotals(context.Context, shared.DateRange) (Totals, error) {
	return f.purchases, nil
}

func (f *fakeStore) ExpenseTotals(context.Context, shared.DateRange) (Totals, error) {
	return f.expenses, nil
}

func (f *fakeStore) SalesByCustomer(context.Context, shared.DateRange) ([]CustomerSales, error) {
	return f.customers, f.err
}

func (f *fakeStore) ProductSales(_ context.Context, _ shared.DateRange, limit int) ([]ProductSales, error) {
	f.gotLimit = limit
	return f.products, f.err
}

func date(s string) *shared.Date {
	d, err := shared.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestSummaryNetsPurchasesAndExpenses(t *testing.T) {
	store := &fakeStore{
		sales:     Totals{Count: 4, Total: 120000},
		purchases: Totals{Count: 1, Total: 50000},
		expenses:  Totals{Count: 2, Total: 15000},
	}
	svc := NewService(store, nil)

	rng := shared.DateRange{From: date("2024-03-01"), To: date("2024-03-31")}
	got, err := svc.Summary(context.Background(), viewer, rng)
	require.NoError(t, err)
	require.Equal(t, int64(55000), got.Net)
	require.Equal(t, int64(4), got.Sales.Count)
	require.Equal(t, "2024-03-01", got.From.String())
}

func TestSummaryPropagatesStoreError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeStore{err: boom}, nil)
	_, err := svc.Summary(context.Background(), admin, shared.DateRange{})
	require.ErrorIs(t, err, boom)
}

func TestReportsRequirePermission(t *testing.T) {
	svc := NewService(&fakeStore{}, nil)
	ctx := context.Background()

	_, err := svc.Summary(ctx, clerk, shared.DateRange{})
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.SalesByCustomer(ctx, shared.Principal{}, shared.DateRange{})
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, err = svc.ProductSales(ctx, clerk, shared.DateRange{}, 0)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestReportsRejectInvertedRange(t *testing.T) {
	svc := NewService(&fakeStore{}, nil)
	rng := shared.DateRange{From: date("2024-05-02"), To: date("2024-05-01")}
	_, err := svc.Summary(context.Background(), admin, rng)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestProductSalesLimit(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.ProductSales(ctx, admin, shared.DateRange{}, 0)
	require.NoError(t, err)
	require.Equal(t, DefaultProductLimit, store.gotLimit)

	_, err = svc.ProductSales(ctx, admin, shared.DateRange{}, 5)
	require.NoError(t, err)
	require.Equal(t, 5, store.gotLimit)

	_, err = svc.ProductSales(ctx, admin, shared.DateRange{}, 501)
	require.ErrorIs(t, err, shared.ErrValidation)
}
