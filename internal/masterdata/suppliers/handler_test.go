package suppliers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/internal/shared"
)

func newSupplierRouter(repo *memorySupplierRepo, p shared.Principal) http.Handler {
	h := NewHandler(nil, NewService(repo, nil, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), p)))
		})
	})
	r.Route("/suppliers", h.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	h.ServeHTTP(rr, req)
	return rr
}

func TestSupplierEndpoints(t *testing.T) {
	repo := newMemorySupplierRepo()
	router := newSupplierRouter(repo, admin)

	rr := do(t, router, http.MethodPost, "/suppliers/", `{"name":"Acme","contact":"0700123456","address":"Plot 4"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Supplier
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = do(t, router, http.MethodPost, "/suppliers/", `{"name":"Acme"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodPost, "/suppliers/", `{"name":""}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodPatch, "/suppliers/1", `{"address":"Plot 9"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var patched Supplier
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &patched))
	require.Equal(t, "Acme", patched.Name)
	require.Equal(t, "Plot 9", patched.Address)

	rr = do(t, router, http.MethodGet, "/suppliers/42", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	repo.purchases[created.ID] = true
	rr = do(t, router, http.MethodDelete, "/suppliers/1", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	repo.purchases[created.ID] = false
	rr = do(t, router, http.MethodDelete, "/suppliers/1", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestSupplierEndpointsWithoutPermission(t *testing.T) {
	repo := newMemorySupplierRepo()
	router := newSupplierRouter(repo, shared.NewPrincipal(2, false, nil))

	rr := do(t, router, http.MethodPost, "/suppliers/", `{"name":"Acme"}`)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Empty(t, repo.suppliers)
}
