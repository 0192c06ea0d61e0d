package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Customer, error)
	GetByName(ctx context.Context, name string) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, error)
	Create(ctx context.Context, customer Customer) (Customer, error)
	Update(ctx context.Context, customer Customer) error
	Delete(ctx context.Context, id int64) error
	HasSales(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx})
	})
}

const customerColumns = `id, name, contact, address, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Contact, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customer %d: %w", id, shared.ErrNotFound)
	}
	return c, err
}

func (r *repository) GetByName(ctx context.Context, name string) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customer %q: %w", name, shared.ErrNotFound)
	}
	return c, err
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	var w db.Where
	if req.Name != "" {
		w.Add("name = ?", req.Name)
	}
	if req.Search != "" {
		w.Add("name ILIKE ?", db.Contains(req.Search))
	}
	rows, err := r.db.Query(ctx, `SELECT `+customerColumns+` FROM customers`+w.SQL()+` ORDER BY name`, w.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO customers (name, contact, address, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id, created_at, updated_at`, c.Name, c.Contact, c.Address).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Customer{}, shared.NewValidationError("name", "customer with this name already exists")
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, c Customer) error {
	_, err := r.db.Exec(ctx, `UPDATE customers SET name = $1, contact = $2, address = $3, updated_at = NOW() WHERE id = $4`,
		c.Name, c.Contact, c.Address, c.ID)
	if db.IsUniqueViolation(err) {
		return shared.NewValidationError("name", "customer with this name already exists")
	}
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("customer %d: %w", id, shared.ErrReferenced)
	}
	return err
}

func (r *repository) HasSales(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE customer_id = $1)`, id).Scan(&exists)
	return exists, err
}
