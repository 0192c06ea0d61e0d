package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/shared"
)

// RepositoryPort defines data access methods for groups.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error
	Get(ctx context.Context, id int64) (*Group, error)
	NameTaken(ctx context.Context, name string, exceptID int64) (bool, error)
	List(ctx context.Context, search string) ([]Group, error)
	Create(ctx context.Context, name string) (int64, error)
	Rename(ctx context.Context, id int64, name string) error
	SetPermissions(ctx context.Context, id int64, perms []string) error
	Delete(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{db: tx})
	})
}

const groupColumns = `g.id, g.name,
COALESCE(ARRAY(SELECT gp.permission FROM group_permissions gp WHERE gp.group_id = g.id ORDER BY gp.permission), '{}')`

func scanGroup(row pgx.Row) (*Group, error) {
	var g Group
	if err := row.Scan(&g.ID, &g.Name, &g.Permissions); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*Group, error) {
	g, err := scanGroup(r.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups g WHERE g.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("group %d: %w", id, shared.ErrNotFound)
	}
	return g, err
}

func (r *Repository) NameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE lower(name) = lower($1) AND id <> $2)`, name, exceptID).Scan(&taken)
	return taken, err
}

func (r *Repository) List(ctx context.Context, search string) ([]Group, error) {
	var w db.Where
	if search != "" {
		w.Add("g.name ILIKE ?", db.Contains(search))
	}
	rows, err := r.db.Query(ctx, `SELECT `+groupColumns+` FROM groups g`+w.SQL()+` ORDER BY g.name`, w.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()
	var out []Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO groups (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, shared.NewValidationError("name", "group with this name already exists")
	}
	return id, err
}

func (r *Repository) Rename(ctx context.Context, id int64, name string) error {
	_, err := r.db.Exec(ctx, `UPDATE groups SET name = $1 WHERE id = $2`, name, id)
	if db.IsUniqueViolation(err) {
		return shared.NewValidationError("name", "group with this name already exists")
	}
	return err
}

func (r *Repository) SetPermissions(ctx context.Context, id int64, perms []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM group_permissions WHERE group_id = $1`, id); err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `INSERT INTO group_permissions (group_id, permission) SELECT $1, unnest($2::text[])`, id, perms)
	return err
}

// Delete removes the group; memberships and grants cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	return err
}
