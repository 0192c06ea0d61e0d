package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/accounting/accounts/accountstest"
	"github.com/dawa-pos/dawa/internal/shared"
)

type memorySalesRepo struct {
	*accountstest.Store
	customers map[int64]bool
	prices    map[int64]int64
	sales     map[int64]Sale
	items     []Item
	nextID    int64
}

func newMemorySalesRepo() *memorySalesRepo {
	return &memorySalesRepo{
		Store:     accountstest.New(),
		customers: map[int64]bool{5: true},
		prices:    map[int64]int64{1: 500, 2: 4500},
		sales:     make(map[int64]Sale),
	}
}

func (r *memorySalesRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.Store.Tx(func() error {
		sales := make(map[int64]Sale, len(r.sales))
		for k, v := range r.sales {
			sales[k] = v
		}
		items := append([]Item(nil), r.items...)
		nextID := r.nextID
		if err := fn(ctx, r); err != nil {
			r.sales, r.items, r.nextID = sales, items, nextID
			return err
		}
		return nil
	})
}

func (r *memorySalesRepo) Get(ctx context.Context, id int64) (Sale, error) {
	s, err := r.LockSale(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	s.Items = []Item{}
	for _, it := range r.items {
		if it.SaleID == id {
			s.Items = append(s.Items, it)
		}
	}
	fillTotals(&s)
	return s, nil
}

func (r *memorySalesRepo) List(ctx context.Context, f ListFilter) ([]Sale, error) {
	var out []Sale
	for id, s := range r.sales {
		if f.CustomerID != nil && (s.CustomerID == nil || *s.CustomerID != *f.CustomerID) {
			continue
		}
		if !f.Date.Contains(s.Date) {
			continue
		}
		full, _ := r.Get(ctx, id)
		out = append(out, full)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memorySalesRepo) CustomerExists(ctx context.Context, id int64) (bool, error) {
	return r.customers[id], nil
}

func (r *memorySalesRepo) PackSizePrices(ctx context.Context, ids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64)
	for _, id := range ids {
		if p, ok := r.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *memorySalesRepo) InsertSale(ctx context.Context, s Sale) (Sale, error) {
	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = time.Now()
	s.Items = nil
	r.sales[s.ID] = s
	return s, nil
}

func (r *memorySalesRepo) InsertItem(ctx context.Context, it Item) (Item, error) {
	it.ID = int64(len(r.items) + 1)
	r.items = append(r.items, it)
	return it, nil
}

func (r *memorySalesRepo) LockSale(ctx context.Context, id int64) (Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return Sale{}, fmt.Errorf("sale %d: %w", id, shared.ErrNotFound)
	}
	return s, nil
}

func (r *memorySalesRepo) HasItems(ctx context.Context, id int64) (bool, error) {
	for _, it := range r.items {
		if it.SaleID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *memorySalesRepo) DeleteSale(ctx context.Context, id int64) error {
	delete(r.sales, id)
	return nil
}

var admin = shared.NewPrincipal(1, true, nil)

func ptr(v int64) *int64 { return &v }

func today() shared.Date { return shared.NewDate(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) }

func TestCreateSaleSnapshotsPrices(t *testing.T) {
	repo := newMemorySalesRepo()
	svc := NewService(repo, nil, nil)

	sale, err := svc.CreateSale(context.Background(), admin, CreateSaleRequest{
		CustomerID: ptr(5),
		Date:       today(),
		Items:      []ItemRequest{{PackSizeID: 1, Quantity: 3}, {PackSizeID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3*500+4500), sale.Total)
	require.Equal(t, int64(1500), sale.Items[0].Total)

	repo.prices[1] = 900
	got, err := svc.Get(context.Background(), admin, sale.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), got.Items[0].SalePrice)
	require.Equal(t, sale.Total, got.Total)
	require.Empty(t, repo.Entries())
}

func TestCreateSaleCreditsSettlementAccount(t *testing.T) {
	repo := newMemorySalesRepo()
	cash := repo.Seed(accounts.Account{Name: "Till", Category: accounts.CategoryCash, Balance: 100})
	svc := NewService(repo, nil, nil)

	sale, err := svc.CreateSale(context.Background(), admin, CreateSaleRequest{
		AccountID: ptr(cash.ID),
		Date:      today(),
		Items:     []ItemRequest{{PackSizeID: 2, Quantity: 2}},
	})
	require.NoError(t, err)
	got, _ := repo.Account(cash.ID)
	require.Equal(t, int64(100+9000), got.Balance)
	entries := repo.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, accounts.RefSale, entries[0].RefKind)
	require.Equal(t, sale.ID, entries[0].RefID)
}

func TestCreateSaleValidation(t *testing.T) {
	repo := newMemorySalesRepo()
	supplierAcc := repo.Seed(accounts.Account{Name: "Acme", Category: accounts.CategorySupplier})
	svc := NewService(repo, nil, nil)

	cases := map[string]CreateSaleRequest{
		"items[0].quantity":     {Date: today(), Items: []ItemRequest{{PackSizeID: 1, Quantity: 0}}},
		"items[1].pack_size_id": {Date: today(), Items: []ItemRequest{{PackSizeID: 1, Quantity: 1}, {PackSizeID: 9, Quantity: 1}}},
		"items":                 {Date: today()},
		"customer_id":           {CustomerID: ptr(77), Date: today(), Items: []ItemRequest{{PackSizeID: 1, Quantity: 1}}},
		"account_id":            {AccountID: ptr(supplierAcc.ID), Date: today(), Items: []ItemRequest{{PackSizeID: 1, Quantity: 1}}},
		"date":                  {Items: []ItemRequest{{PackSizeID: 1, Quantity: 1}}},
	}
	for field, req := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := svc.CreateSale(context.Background(), admin, req)
			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Fields, field)
		})
	}
	require.Empty(t, repo.sales)
	require.Empty(t, repo.items)
	require.Empty(t, repo.Entries())
}

func TestDeleteSaleWithItemsRefused(t *testing.T) {
	repo := newMemorySalesRepo()
	svc := NewService(repo, nil, nil)
	sale, err := svc.CreateSale(context.Background(), admin, CreateSaleRequest{Date: today(), Items: []ItemRequest{{PackSizeID: 1, Quantity: 1}}})
	require.NoError(t, err)
	require.ErrorIs(t, svc.Delete(context.Background(), admin, sale.ID), shared.ErrReferenced)

	repo.items = nil
	require.NoError(t, svc.Delete(context.Background(), admin, sale.ID))
}

func TestSalePermissions(t *testing.T) {
	repo := newMemorySalesRepo()
	svc := NewService(repo, nil, nil)
	viewer := shared.NewPrincipal(2, false, []string{shared.PermSalesView})
	_, err := svc.CreateSale(context.Background(), viewer, CreateSaleRequest{Date: today(), Items: []ItemRequest{{PackSizeID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Empty(t, repo.sales)
}

func TestSaleEndpoints(t *testing.T) {
	repo := newMemorySalesRepo()
	h := NewHandler(nil, NewService(repo, nil, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), admin)))
		})
	})
	r.Route("/sales", h.MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sales/",
		strings.NewReader(`{"customer_id":5,"date":"2026-03-01","items":[{"pack_size_id":1,"quantity":2}]}`)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var sale Sale
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sale))
	require.Equal(t, int64(1000), sale.Total)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sales/?customer_id=5&date_before=2026-02-28", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/sales/%d", sale.ID), nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sales/", strings.NewReader(`{"date":"2026-03-01","items":[]}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
