package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/shared"
)

// Store loads a user's authorization state.
type Store interface {
	UserAccess(ctx context.Context, userID int64) (*Access, error)
}

// Service resolves principals and exposes the permission catalog.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Resolve builds the principal for userID. Unknown and inactive users are
// unauthenticated. Effective permissions are the union of the user's groups.
func (s *Service) Resolve(ctx context.Context, userID int64) (shared.Principal, error) {
	access, err := s.store.UserAccess(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Principal{}, fmt.Errorf("user %d: %w", userID, shared.ErrUnauthenticated)
		}
		return shared.Principal{}, fmt.Errorf("resolve principal: %w", err)
	}
	if !access.Active {
		return shared.Principal{}, fmt.Errorf("user %d inactive: %w", userID, shared.ErrUnauthenticated)
	}
	return shared.NewPrincipal(access.UserID, access.Superuser, access.Permissions), nil
}

// ListPermissions returns the catalog sorted by name.
func (s *Service) ListPermissions() []Permission {
	scopes := shared.AllScopes()
	out := make([]Permission, 0, len(scopes))
	for _, name := range scopes {
		resource, action, _ := strings.Cut(name, ".")
		out = append(out, Permission{Name: name, Resource: resource, Action: action})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore returns a Postgres backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) UserAccess(ctx context.Context, userID int64) (*Access, error) {
	access := Access{UserID: userID}
	err := s.pool.QueryRow(ctx, `SELECT is_active, is_superuser FROM users WHERE id = $1`, userID).
		Scan(&access.Active, &access.Superuser)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT gp.permission
FROM group_permissions gp
JOIN user_groups ug ON ug.group_id = gp.group_id
WHERE ug.user_id = $1
ORDER BY gp.permission`, userID)
	if err != nil {
		return nil, err
	}
	access.Permissions, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return &access, nil
}
