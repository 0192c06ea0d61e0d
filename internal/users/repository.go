package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error
	Get(ctx context.Context, id int64) (*User, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	List(ctx context.Context, req ListUsersRequest) ([]User, error)
	Create(ctx context.Context, u User, passwordHash string) (User, error)
	Update(ctx context.Context, u User) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	SetGroups(ctx context.Context, id int64, groups []int64) error
	MissingGroups(ctx context.Context, ids []int64) ([]int64, error)
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

const userColumns = `u.id, u.email, u.first_name, u.last_name, u.is_active, u.is_superuser, u.date_joined, u.updated_at,
COALESCE(ARRAY(SELECT ug.group_id FROM user_groups ug WHERE ug.user_id = u.id ORDER BY ug.group_id), '{}')`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.IsActive, &u.IsSuperuser,
		&u.DateJoined, &u.UpdatedAt, &u.Groups); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return u, err
}

func (r *Repository) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, exceptID).Scan(&taken)
	return taken, err
}

func (r *Repository) List(ctx context.Context, req ListUsersRequest) ([]User, error) {
	var w db.Where
	if req.Search != "" {
		pattern := db.Contains(req.Search)
		w.Add("(u.email ILIKE ? OR u.first_name ILIKE ? OR u.last_name ILIKE ?)", pattern)
	}
	if req.IsActive != nil {
		w.Add("u.is_active = ?", *req.IsActive)
	}
	if req.GroupID != nil {
		w.Add("EXISTS (SELECT 1 FROM user_groups g WHERE g.user_id = u.id AND g.group_id = ?)", *req.GroupID)
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users u`+w.SQL()+` ORDER BY u.email`, w.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO users (email, first_name, last_name, password_hash, is_active, is_superuser, date_joined, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING id, date_joined, updated_at`,
		u.Email, u.FirstName, u.LastName, passwordHash, u.IsActive, u.IsSuperuser).
		Scan(&u.ID, &u.DateJoined, &u.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return User{}, shared.NewValidationError("email", "user with this email already exists")
	}
	return u, err
}

func (r *Repository) Update(ctx context.Context, u User) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET email = $1, first_name = $2, last_name = $3, is_active = $4, is_superuser = $5, updated_at = NOW()
WHERE id = $6`, u.Email, u.FirstName, u.LastName, u.IsActive, u.IsSuperuser, u.ID)
	if db.IsUniqueViolation(err) {
		return shared.NewValidationError("email", "user with this email already exists")
	}
	return err
}

func (r *Repository) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	return err
}

func (r *Repository) SetGroups(ctx context.Context, id int64, groups []int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM user_groups WHERE user_id = $1`, id); err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `INSERT INTO user_groups (user_id, group_id) SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`, id, groups)
	if db.IsForeignKeyViolation(err) {
		return shared.ReferenceNotFound("groups")
	}
	return err
}

func (r *Repository) MissingGroups(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT want.id FROM unnest($1::bigint[]) AS want(id)
WHERE NOT EXISTS (SELECT 1 FROM groups g WHERE g.id = want.id) ORDER BY want.id`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("user %d: %w", id, shared.ErrReferenced)
	}
	return err
}
