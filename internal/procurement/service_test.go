package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/accounting/accounts/accountstest"
	"github.com/dawa-pos/dawa/internal/inventory"
	"github.com/dawa-pos/dawa/internal/shared"
)

type memoryProcRepo struct {
	*accountstest.Store
	suppliers map[int64]int64
	products  map[int64]bool
	purchases map[int64]Purchase
	items     map[int64]inventory.Item
	keys      map[string]bool
	nextID    int64
	nextItem  int64
	itemErr   error
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{
		Store:     accountstest.New(),
		suppliers: make(map[int64]int64),
		products:  map[int64]bool{1: true, 2: true},
		purchases: make(map[int64]Purchase),
		items:     make(map[int64]inventory.Item),
		keys:      make(map[string]bool),
	}
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.Store.Tx(func() error {
		purchases := make(map[int64]Purchase, len(r.purchases))
		for k, v := range r.purchases {
			purchases[k] = v
		}
		items := make(map[int64]inventory.Item, len(r.items))
		for k, v := range r.items {
			items[k] = v
		}
		keys := make(map[string]bool, len(r.keys))
		for k, v := range r.keys {
			keys[k] = v
		}
		nextID, nextItem := r.nextID, r.nextItem
		if err := fn(ctx, r); err != nil {
			r.purchases, r.items, r.keys = purchases, items, keys
			r.nextID, r.nextItem = nextID, nextItem
			return err
		}
		return nil
	})
}

func (r *memoryProcRepo) Get(ctx context.Context, id int64) (Purchase, error) {
	p, err := r.LockPurchase(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	p.Items = r.itemsOf(id)
	return p, nil
}

func (r *memoryProcRepo) itemsOf(purchaseID int64) []inventory.Item {
	out := []inventory.Item{}
	for _, it := range r.items {
		if it.PurchaseID == purchaseID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryProcRepo) List(ctx context.Context, f ListFilter) ([]Purchase, error) {
	var out []Purchase
	for id, p := range r.purchases {
		if f.SupplierID != nil && p.SupplierID != *f.SupplierID {
			continue
		}
		if !f.Date.Contains(p.Date) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Invoice), strings.ToLower(f.Search)) {
			continue
		}
		p.Items = r.itemsOf(id)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memoryProcRepo) SupplierAccount(ctx context.Context, supplierID int64) (int64, error) {
	acc, ok := r.suppliers[supplierID]
	if !ok {
		return 0, fmt.Errorf("supplier %d: %w", supplierID, shared.ErrNotFound)
	}
	return acc, nil
}

func (r *memoryProcRepo) MissingProducts(ctx context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if !r.products[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *memoryProcRepo) ClaimKey(ctx context.Context, key string) error {
	if r.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	r.keys[key] = true
	return nil
}

func (r *memoryProcRepo) InsertPurchase(ctx context.Context, p Purchase) (Purchase, error) {
	r.nextID++
	p.ID = r.nextID
	r.purchases[p.ID] = p
	return p, nil
}

func (r *memoryProcRepo) InsertItem(ctx context.Context, it inventory.Item) (inventory.Item, error) {
	if r.itemErr != nil {
		return inventory.Item{}, r.itemErr
	}
	r.nextItem++
	it.ID = r.nextItem
	r.items[it.ID] = it
	return it, nil
}

func (r *memoryProcRepo) LockPurchase(ctx context.Context, id int64) (Purchase, error) {
	p, ok := r.purchases[id]
	if !ok {
		return Purchase{}, fmt.Errorf("purchase %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

func (r *memoryProcRepo) UpdateHeader(ctx context.Context, p Purchase) error {
	r.purchases[p.ID] = p
	return nil
}

func (r *memoryProcRepo) HasItems(ctx context.Context, id int64) (bool, error) {
	return len(r.itemsOf(id)) > 0, nil
}

func (r *memoryProcRepo) DeletePurchase(ctx context.Context, id int64) error {
	delete(r.purchases, id)
	return nil
}

var admin = shared.NewPrincipal(1, true, nil)

func date(s string) shared.Date {
	d, err := shared.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// withSupplier registers supplier 7 whose account starts at zero.
func withSupplier(r *memoryProcRepo) accounts.Account {
	acc := r.Seed(accounts.Account{Name: "Acme", Category: accounts.CategorySupplier})
	r.suppliers[7] = acc.ID
	return acc
}

func validInput() CreateInput {
	return CreateInput{
		SupplierID: 7,
		Date:       date("2026-03-01"),
		Invoice:    "INV-001",
		Total:      7000,
		Items: []inventory.Form{
			{ProductID: 1, BatchNumber: "B1", ExpiryDate: date("2027-01-01"), PackSize: 10, PackCost: 500, Quantity: 10},
			{ProductID: 2, PackSize: 1, PackCost: 1000, Quantity: 2},
		},
	}
}

func TestCreatePurchaseCommitsAllParts(t *testing.T) {
	repo := newMemoryProcRepo()
	acc := withSupplier(repo)
	svc := NewService(repo, nil, nil)

	p, err := svc.CreatePurchase(context.Background(), admin, validInput())
	require.NoError(t, err)
	require.Equal(t, int64(7000), p.Total)
	require.Len(t, p.Items, 2)
	require.Equal(t, int64(100), p.Items[0].AvailableUnits)
	require.Equal(t, int64(2), p.Items[1].AvailableUnits)

	got, _ := repo.Account(acc.ID)
	require.Equal(t, int64(-7000), got.Balance)
	entries := repo.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, accounts.Ref{Kind: accounts.RefPurchase, ID: p.ID}, accounts.Ref{Kind: entries[0].RefKind, ID: entries[0].RefID})
}

func TestCreatePurchaseTotalMismatch(t *testing.T) {
	repo := newMemoryProcRepo()
	acc := withSupplier(repo)
	svc := NewService(repo, nil, nil)

	in := validInput()
	in.Total = 6999
	_, err := svc.CreatePurchase(context.Background(), admin, in)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, MsgTotalMismatch, verr.Fields["total"])

	require.Empty(t, repo.purchases)
	require.Empty(t, repo.items)
	got, _ := repo.Account(acc.ID)
	require.Zero(t, got.Balance)
}

func TestCreatePurchaseRejectsBadLines(t *testing.T) {
	repo := newMemoryProcRepo()
	withSupplier(repo)
	svc := NewService(repo, nil, nil)

	cases := map[string]func(*CreateInput){
		"items[0].quantity":   func(in *CreateInput) { in.Items[0].Quantity = 0 },
		"items[0].pack_size":  func(in *CreateInput) { in.Items[0].PackSize = 0 },
		"items[1].pack_cost":  func(in *CreateInput) { in.Items[1].PackCost = -1 },
		"items[1].product_id": func(in *CreateInput) { in.Items[1].ProductID = 99 },
		"items":               func(in *CreateInput) { in.Items = nil },
		"supplier_id":         func(in *CreateInput) { in.SupplierID = 8 },
		"date":                func(in *CreateInput) { in.Date = shared.Date{} },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.CreatePurchase(context.Background(), admin, in)
			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Fields, field)
		})
	}
	require.Empty(t, repo.purchases)
	require.Empty(t, repo.Entries())
}

func TestCreatePurchaseRollsBackOnItemFailure(t *testing.T) {
	repo := newMemoryProcRepo()
	acc := withSupplier(repo)
	repo.itemErr = errors.New("disk full")
	svc := NewService(repo, nil, nil)

	_, err := svc.CreatePurchase(context.Background(), admin, validInput())
	require.Error(t, err)
	require.Empty(t, repo.purchases)
	got, _ := repo.Account(acc.ID)
	require.Zero(t, got.Balance)
	require.Empty(t, repo.Entries())
}

func TestCreatePurchaseIdempotencyKey(t *testing.T) {
	repo := newMemoryProcRepo()
	acc := withSupplier(repo)
	svc := NewService(repo, nil, nil)

	in := validInput()
	in.IdempotencyKey = "abc"
	_, err := svc.CreatePurchase(context.Background(), admin, in)
	require.NoError(t, err)
	_, err = svc.CreatePurchase(context.Background(), admin, in)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	require.Len(t, repo.purchases, 1)
	got, _ := repo.Account(acc.ID)
	require.Equal(t, int64(-7000), got.Balance)
}

func TestPurchasePermissions(t *testing.T) {
	repo := newMemoryProcRepo()
	withSupplier(repo)
	svc := NewService(repo, nil, nil)

	viewer := shared.NewPrincipal(3, false, []string{shared.PermPurchasesView})
	_, err := svc.CreatePurchase(context.Background(), viewer, validInput())
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.CreatePurchase(context.Background(), shared.Principal{}, validInput())
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	require.Empty(t, repo.purchases)
}

func TestHeaderUpdateAndProtectedDelete(t *testing.T) {
	repo := newMemoryProcRepo()
	withSupplier(repo)
	svc := NewService(repo, nil, nil)
	p, err := svc.CreatePurchase(context.Background(), admin, validInput())
	require.NoError(t, err)

	updated, err := svc.UpdateHeader(context.Background(), admin, p.ID, HeaderInput{Date: date("2026-03-02"), Invoice: "INV-001A"})
	require.NoError(t, err)
	require.Equal(t, "INV-001A", updated.Invoice)
	require.Equal(t, p.Total, updated.Total)
	require.Len(t, updated.Items, 2)

	require.ErrorIs(t, svc.Delete(context.Background(), admin, p.ID), shared.ErrReferenced)
	require.ErrorIs(t, svc.Delete(context.Background(), admin, 404), shared.ErrNotFound)
}

func TestPurchaseEndpoints(t *testing.T) {
	repo := newMemoryProcRepo()
	withSupplier(repo)
	h := NewHandler(nil, NewService(repo, nil, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), admin)))
		})
	})
	r.Route("/purchases", h.MountRoutes)

	body := `{"supplier_id":7,"date":"2026-03-01","invoice":"INV-9","total":5000,
		"items":[{"product_id":1,"pack_size":10,"pack_cost":500,"quantity":10}]}`
	post := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/purchases/", strings.NewReader(body))
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	rr := post("k-1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Purchase
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, int64(100), created.Items[0].AvailableUnits)

	rr = post("k-1")
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/purchases/?supplier_id=7&date_after=2026-03-01&search=inv", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list []Purchase
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/purchases/%d", created.ID), strings.NewReader(`{"invoice":"INV-10"}`)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"date":"2026-03-01"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/purchases/%d", created.ID), nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
