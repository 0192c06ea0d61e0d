package rbac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/internal/shared"
)

type memoryStore map[int64]Access

func (m memoryStore) UserAccess(ctx context.Context, userID int64) (*Access, error) {
	a, ok := m[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func testStore() memoryStore {
	return memoryStore{
		1: {UserID: 1, Active: true, Superuser: true},
		2: {UserID: 2, Active: true, Permissions: []string{"sales.view", "sales.add", "customers.view"}},
		3: {UserID: 3, Active: false, Permissions: []string{"sales.view"}},
	}
}

func TestResolveUnionsGroupPermissions(t *testing.T) {
	svc := NewService(testStore())
	p, err := svc.Resolve(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, p.Can(shared.PermSalesAdd))
	require.True(t, p.Can(shared.PermCustomersView))
	require.False(t, p.Can(shared.PermPurchasesAdd))
	require.ErrorIs(t, p.Require(shared.PermSalesView, shared.PermPurchasesView), shared.ErrForbidden)

	root, err := svc.Resolve(context.Background(), 1)
	require.NoError(t, err)
	for _, perm := range shared.AllScopes() {
		require.True(t, root.Can(perm), perm)
	}
}

func TestResolveRejectsInactiveAndUnknownUsers(t *testing.T) {
	svc := NewService(testStore())
	_, err := svc.Resolve(context.Background(), 3)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, err = svc.Resolve(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestListPermissionsCoversCatalog(t *testing.T) {
	perms := NewService(testStore()).ListPermissions()
	require.Len(t, perms, len(shared.AllScopes()))
	for i := 1; i < len(perms); i++ {
		require.Less(t, perms[i-1].Name, perms[i].Name)
	}
	require.Contains(t, perms, Permission{Name: "purchases.add", Resource: "purchases", Action: "add"})
}

func serveAs(h http.Handler, p shared.Principal, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareStatusCodes(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	m := Middleware{}
	clerk := shared.NewPrincipal(2, false, []string{"sales.view"})

	either := m.RequireAny(" Sales.View ", "purchases.view")(ok)
	require.Equal(t, http.StatusNoContent, serveAs(either, clerk, "/").Code)
	require.Equal(t, http.StatusUnauthorized, serveAs(either, shared.Principal{}, "/").Code)

	all := m.RequireAll("sales.view", "purchases.view")(ok)
	require.Equal(t, http.StatusForbidden, serveAs(all, clerk, "/").Code)
	require.Equal(t, http.StatusUnauthorized, serveAs(all, shared.Principal{}, "/").Code)
	require.Equal(t, http.StatusNoContent, serveAs(all, shared.NewPrincipal(1, true, nil), "/").Code)
}

func TestPermissionsEndpoint(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/permissions", NewPermissionsHandler(nil, NewService(testStore()), Middleware{}).MountRoutes)

	rec := serveAs(r, shared.NewPrincipal(1, true, nil), "/permissions/")
	require.Equal(t, http.StatusOK, rec.Code)
	var perms []Permission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &perms))
	require.NotEmpty(t, perms)

	require.Equal(t, http.StatusForbidden, serveAs(r, shared.NewPrincipal(2, false, []string{"sales.view"}), "/permissions/").Code)
}
