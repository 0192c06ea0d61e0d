package suppliers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/shared"
)

// AccountStore is the slice of the ledger that provisioning touches.
type AccountStore interface {
	CreateAccount(ctx context.Context, a accounts.Account) (accounts.Account, error)
	AccountNameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
	AccountReferenced(ctx context.Context, id int64) (bool, error)
	DeleteAccount(ctx context.Context, id int64) error
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	AccountStore
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
	Insert(ctx context.Context, s Supplier) (Supplier, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Update(ctx context.Context, s Supplier) error
	Delete(ctx context.Context, id int64) error
	HasPurchases(ctx context.Context, id int64) (bool, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool    *pgxpool.Pool
	observe db.ConflictObserver
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, observe db.ConflictObserver) *Repository {
	return &Repository{pool: pool, observe: observe}
}

type txRepo struct {
	*accounts.Store
	q db.DBTX
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxObserved(ctx, r.pool, r.observe, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Store: accounts.NewStore(tx), q: tx})
	})
}

const supplierColumns = `id, name, contact, address, account_id, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.Address, &s.AccountID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func getSupplier(ctx context.Context, q db.DBTX, id int64) (Supplier, error) {
	s, err := scanSupplier(q.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("supplier %d: %w", id, shared.ErrNotFound)
	}
	return s, err
}

// Get returns one supplier.
func (r *Repository) Get(ctx context.Context, id int64) (Supplier, error) {
	return getSupplier(ctx, r.pool, id)
}

// List returns suppliers ordered by name.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Supplier, error) {
	var w db.Where
	if f.Search != "" {
		w.Add("name ILIKE ?", db.Contains(f.Search))
	}
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers`+w.SQL()+` ORDER BY name, id`, w.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *txRepo) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var taken bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE name = $1 AND id <> $2)`, name, excludeID).Scan(&taken)
	return taken, err
}

func (t *txRepo) Insert(ctx context.Context, s Supplier) (Supplier, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO suppliers (name, contact, address, account_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		s.Name, s.Contact, s.Address, s.AccountID).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Supplier{}, shared.NewValidationError("name", "supplier with this name already exists")
		}
		return Supplier{}, err
	}
	return s, nil
}

func (t *txRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	return getSupplier(ctx, t.q, id)
}

func (t *txRepo) Update(ctx context.Context, s Supplier) error {
	_, err := t.q.Exec(ctx, `UPDATE suppliers SET name = $1, contact = $2, address = $3, updated_at = NOW() WHERE id = $4`,
		s.Name, s.Contact, s.Address, s.ID)
	if db.IsUniqueViolation(err) {
		return shared.NewValidationError("name", "supplier with this name already exists")
	}
	return err
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("supplier %d: %w", id, shared.ErrReferenced)
	}
	return err
}

func (t *txRepo) HasPurchases(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchases WHERE supplier_id = $1)`, id).Scan(&exists)
	return exists, err
}
