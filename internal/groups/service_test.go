package groups

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/internal/shared"
)

type memoryGroupRepo struct {
	groups map[int64]Group
	nextID int64
}

func newMemoryGroupRepo() *memoryGroupRepo {
	return &memoryGroupRepo{groups: make(map[int64]Group)}
}

func (r *memoryGroupRepo) WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error {
	snapshot := make(map[int64]Group, len(r.groups))
	for k, v := range r.groups {
		snapshot[k] = v
	}
	if err := fn(ctx, r); err != nil {
		r.groups = snapshot
		return err
	}
	return nil
}

func (r *memoryGroupRepo) Get(ctx context.Context, id int64) (*Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %d: %w", id, shared.ErrNotFound)
	}
	return &g, nil
}

func (r *memoryGroupRepo) NameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	for _, g := range r.groups {
		if strings.EqualFold(g.Name, name) && g.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryGroupRepo) List(ctx context.Context, search string) ([]Group, error) {
	var out []Group
	for _, g := range r.groups {
		if search == "" || strings.Contains(strings.ToLower(g.Name), strings.ToLower(search)) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryGroupRepo) Create(ctx context.Context, name string) (int64, error) {
	r.nextID++
	r.groups[r.nextID] = Group{ID: r.nextID, Name: name}
	return r.nextID, nil
}

func (r *memoryGroupRepo) Rename(ctx context.Context, id int64, name string) error {
	g := r.groups[id]
	g.Name = name
	r.groups[id] = g
	return nil
}

func (r *memoryGroupRepo) SetPermissions(ctx context.Context, id int64, perms []string) error {
	g := r.groups[id]
	g.Permissions = perms
	r.groups[id] = g
	return nil
}

func (r *memoryGroupRepo) Delete(ctx context.Context, id int64) error {
	delete(r.groups, id)
	return nil
}

var admin = shared.NewPrincipal(1, true, nil)

func TestCreateGroupValidatesPermissions(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryGroupRepo()
	svc := NewService(repo, nil)

	g, err := svc.Create(ctx, admin, CreateGroupRequest{
		Name:        "  Cashiers ",
		Permissions: []string{"sales.add", "Sales.View", "sales.add"},
	})
	require.NoError(t, err)
	require.Equal(t, "Cashiers", g.Name)
	require.Equal(t, []string{"sales.add", "sales.view"}, repo.groups[g.ID].Permissions)

	_, err = svc.Create(ctx, admin, CreateGroupRequest{Name: "Auditors", Permissions: []string{"ledger.rewrite"}})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "permissions")

	_, err = svc.Create(ctx, admin, CreateGroupRequest{Name: "cashiers"})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "name")
	require.Len(t, repo.groups, 1)
}

func TestUpdateGroup(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryGroupRepo()
	svc := NewService(repo, nil)
	g, err := svc.Create(ctx, admin, CreateGroupRequest{Name: "Store", Permissions: []string{"inventory.view"}})
	require.NoError(t, err)

	perms := []string{"inventory.view", "inventory.change", "purchases.add"}
	updated, err := svc.Update(ctx, admin, g.ID, UpdateGroupRequest{Permissions: &perms})
	require.NoError(t, err)
	require.Equal(t, "Store", updated.Name)
	require.Equal(t, []string{"inventory.change", "inventory.view", "purchases.add"}, updated.Permissions)

	name := "Stores"
	updated, err = svc.Update(ctx, admin, g.ID, UpdateGroupRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Stores", updated.Name)
	require.Len(t, updated.Permissions, 3)

	_, err = svc.Update(ctx, admin, 99, UpdateGroupRequest{Name: &name})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGroupPermissions(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryGroupRepo()
	svc := NewService(repo, nil)
	viewer := shared.NewPrincipal(3, false, []string{shared.PermGroupsView})

	_, err := svc.Create(ctx, viewer, CreateGroupRequest{Name: "X"})
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.List(ctx, shared.Principal{}, "")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, err = svc.List(ctx, viewer, "")
	require.NoError(t, err)
	require.Empty(t, repo.groups)
}

func TestGroupEndpoints(t *testing.T) {
	repo := newMemoryGroupRepo()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), admin)))
		})
	})
	r.Route("/groups", NewHandler(nil, NewService(repo, nil)).MountRoutes)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := do(http.MethodPost, "/groups/", `{"name":"Pharmacists","permissions":["sales.add","products.view"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/groups/", `{"name":""}`).Code)

	rec = do(http.MethodPut, "/groups/1", `{"name":"Pharmacists"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, repo.groups[1].Permissions)
	require.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/groups/1", `{"permissions":[]}`).Code)

	require.Contains(t, do(http.MethodGet, "/groups/?search=pharm", "").Body.String(), "Pharmacists")
	require.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/groups/1", "").Code)
	require.Equal(t, http.StatusNotFound, do(http.MethodDelete, "/groups/1", "").Code)
}
