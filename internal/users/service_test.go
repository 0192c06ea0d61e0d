package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dawa-pos/dawa/internal/shared"
)

type memoryUserRepo struct {
	users     map[int64]User
	passwords map[int64]string
	groups    map[int64]bool
	nextID    int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users:     make(map[int64]User),
		passwords: make(map[int64]string),
		groups:    map[int64]bool{10: true, 11: true},
		// ids below 100 belong to the fixed test principals
		nextID: 100,
	}
}

func (r *memoryUserRepo) WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error {
	users := make(map[int64]User, len(r.users))
	for k, v := range r.users {
		users[k] = v
	}
	if err := fn(ctx, r); err != nil {
		r.users = users
		return err
	}
	return nil
}

func (r *memoryUserRepo) Get(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return &u, nil
}

func (r *memoryUserRepo) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	for _, u := range r.users {
		if u.Email == email && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepo) List(ctx context.Context, req ListUsersRequest) ([]User, error) {
	var out []User
	for _, u := range r.users {
		if req.Search != "" && !strings.Contains(strings.ToLower(u.FirstName+" "+u.LastName+" "+u.Email), strings.ToLower(req.Search)) {
			continue
		}
		if req.IsActive != nil && u.IsActive != *req.IsActive {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, u User, hash string) (User, error) {
	r.nextID++
	u.ID = r.nextID
	r.users[u.ID] = u
	r.passwords[u.ID] = hash
	return u, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, u User) error {
	r.users[u.ID] = u
	return nil
}

func (r *memoryUserRepo) SetPassword(ctx context.Context, id int64, hash string) error {
	r.passwords[id] = hash
	return nil
}

func (r *memoryUserRepo) SetGroups(ctx context.Context, id int64, groups []int64) error {
	u := r.users[id]
	u.Groups = groups
	r.users[id] = u
	return nil
}

func (r *memoryUserRepo) MissingGroups(ctx context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if !r.groups[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	delete(r.users, id)
	return nil
}

var admin = shared.NewPrincipal(1, true, nil)

func newTestService(repo *memoryUserRepo) *Service {
	svc := NewService(repo, nil)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func TestCreateUserHashesPasswordAndAssignsGroups(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)

	u, err := svc.Create(ctx, admin, CreateUserRequest{
		Email: " Clerk@Dawa.Test ", FirstName: "Amina", Password: "long-enough", Groups: []int64{11, 10, 11},
	})
	require.NoError(t, err)
	require.Equal(t, "clerk@dawa.test", u.Email)
	require.True(t, u.IsActive)
	require.Equal(t, []int64{10, 11}, repo.users[u.ID].Groups)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwords[u.ID]), []byte("long-enough")))

	_, err = svc.Create(ctx, admin, CreateUserRequest{Email: "clerk@dawa.test", Password: "long-enough"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "email")
	require.Len(t, repo.users, 1)
}

func TestCreateUserRejectsUnknownGroup(t *testing.T) {
	repo := newMemoryUserRepo()
	_, err := newTestService(repo).Create(context.Background(), admin, CreateUserRequest{
		Email: "x@dawa.test", Password: "long-enough", Groups: []int64{99},
	})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "groups")
	require.Empty(t, repo.users)
}

func TestUserPermissions(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)
	manager := shared.NewPrincipal(5, false, []string{shared.PermUsersAdd, shared.PermUsersChange})

	_, err := svc.Create(ctx, shared.Principal{}, CreateUserRequest{Email: "a@dawa.test", Password: "long-enough"})
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, err = svc.Create(ctx, manager, CreateUserRequest{Email: "a@dawa.test", Password: "long-enough", IsSuperuser: true})
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.List(ctx, manager, ListUsersRequest{})
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Empty(t, repo.users)

	u, err := svc.Create(ctx, manager, CreateUserRequest{Email: "a@dawa.test", Password: "long-enough"})
	require.NoError(t, err)
	require.ErrorIs(t, svc.Delete(ctx, manager, u.ID), shared.ErrForbidden)
}

func TestUpdateUserPartialFields(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := newTestService(repo)
	u, err := svc.Create(ctx, admin, CreateUserRequest{Email: "a@dawa.test", FirstName: "Ann", Password: "long-enough", Groups: []int64{10}})
	require.NoError(t, err)
	require.NotEqual(t, admin.UserID, u.ID)
	oldHash := repo.passwords[u.ID]

	last := "Mushi"
	pw := "another-password"
	inactive := false
	updated, err := svc.Update(ctx, admin, u.ID, UpdateUserRequest{LastName: &last, Password: &pw, IsActive: &inactive})
	require.NoError(t, err)
	require.Equal(t, "Ann", updated.FirstName)
	require.Equal(t, "Mushi", updated.LastName)
	require.False(t, updated.IsActive)
	require.Equal(t, []int64{10}, updated.Groups)
	require.NotEqual(t, oldHash, repo.passwords[u.ID])

	_, err = svc.Update(ctx, admin, admin.UserID, UpdateUserRequest{IsActive: &inactive})
	require.Error(t, err)
	require.ErrorIs(t, svc.Delete(ctx, admin, admin.UserID), shared.ErrValidation)
}

func TestUserEndpoints(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newTestService(repo)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), admin)))
		})
	})
	r.Route("/users", NewHandler(nil, svc).MountRoutes)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := do(http.MethodPost, "/users/", `{"email":"new@dawa.test","password":"long-enough","first_name":"Neema"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "password")
	var created User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/users/", `{"email":"bad","password":"short"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(http.MethodPut, fmt.Sprintf("/users/%d", created.ID), `{"first_name":"N"}`).Code)
	require.Equal(t, http.StatusOK, do(http.MethodPatch, fmt.Sprintf("/users/%d", created.ID), `{"first_name":"N"}`).Code)

	rec = do(http.MethodGet, "/users/?search=nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]\n", rec.Body.String())
	rec = do(http.MethodGet, "/users/?is_active=true", "")
	require.Contains(t, rec.Body.String(), "new@dawa.test")
	require.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/users/?is_active=maybe", "").Code)

	require.Equal(t, http.StatusNoContent, do(http.MethodDelete, fmt.Sprintf("/users/%d", created.ID), "").Code)
	require.Equal(t, http.StatusNotFound, do(http.MethodGet, fmt.Sprintf("/users/%d", created.ID), "").Code)
}
