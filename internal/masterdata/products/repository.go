package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/shared"
)

// TxRepository exposes transactional operations.
type TxRepository interface {
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	InsertProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ProductReferenced(ctx context.Context, id int64) (bool, error)
	InsertPackSize(ctx context.Context, ps PackSize) (PackSize, error)
	UpdatePackSize(ctx context.Context, ps PackSize) error
	DeletePackSize(ctx context.Context, id int64) error
	PackSizeReferenced(ctx context.Context, id int64) (bool, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool    *pgxpool.Pool
	observe db.ConflictObserver
}

func NewRepository(pool *pgxpool.Pool, observe db.ConflictObserver) *Repository {
	return &Repository{pool: pool, observe: observe}
}

type queries struct {
	q db.DBTX
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxObserved(ctx, r.pool, r.observe, func(tx pgx.Tx) error {
		return fn(ctx, queries{q: tx})
	})
}

// Get returns a product with its pack sizes.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	return queries{q: r.pool}.GetProduct(ctx, id)
}

// List returns products ordered by name, pack sizes attached.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Product, error) {
	var w db.Where
	if f.Search != "" {
		w.Add("p.name ILIKE ? OR p.generic_name ILIKE ?", db.Contains(f.Search))
	}
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, p.generic_name, p.created_at, p.updated_at FROM products p`+w.SQL()+` ORDER BY p.name`, w.Args()...)
	if err != nil {
		return nil, err
	}
	var (
		out   []Product
		index = make(map[int64]int)
		ids   []int64
	)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.GenericName, &p.CreatedAt, &p.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		p.PackSizes = []PackSize{}
		index[p.ID] = len(out)
		ids = append(ids, p.ID)
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	packs, err := listPackSizes(ctx, r.pool, `product_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, ps := range packs {
		i := index[ps.ProductID]
		out[i].PackSizes = append(out[i].PackSizes, ps)
	}
	return out, nil
}

// GetPackSize loads one pack size.
func (r *Repository) GetPackSize(ctx context.Context, id int64) (PackSize, error) {
	packs, err := listPackSizes(ctx, r.pool, `id = $1`, id)
	if err != nil {
		return PackSize{}, err
	}
	if len(packs) == 0 {
		return PackSize{}, fmt.Errorf("pack size %d: %w", id, shared.ErrNotFound)
	}
	return packs[0], nil
}

func listPackSizes(ctx context.Context, q db.DBTX, where string, arg any) ([]PackSize, error) {
	rows, err := q.Query(ctx, `SELECT id, product_id, units, sale_price FROM pack_sizes WHERE `+where+` ORDER BY units, id`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PackSize
	for rows.Next() {
		var ps PackSize
		if err := rows.Scan(&ps.ID, &ps.ProductID, &ps.Units, &ps.SalePrice); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (t queries) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var taken bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE name = $1 AND id <> $2)`, name, excludeID).Scan(&taken)
	return taken, err
}

func (t queries) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := t.q.QueryRow(ctx, `SELECT id, name, generic_name, created_at, updated_at FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.GenericName, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Product{}, err
	}
	p.PackSizes, err = listPackSizes(ctx, t.q, `product_id = $1`, id)
	if p.PackSizes == nil {
		p.PackSizes = []PackSize{}
	}
	return p, err
}

func (t queries) InsertProduct(ctx context.Context, p Product) (Product, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO products (name, generic_name, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
RETURNING id, created_at, updated_at`, p.Name, p.GenericName).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return Product{}, shared.NewValidationError("name", "product with this name already exists")
	}
	return p, err
}

func (t queries) UpdateProduct(ctx context.Context, p Product) error {
	_, err := t.q.Exec(ctx, `UPDATE products SET name = $1, generic_name = $2, updated_at = NOW() WHERE id = $3`, p.Name, p.GenericName, p.ID)
	if db.IsUniqueViolation(err) {
		return shared.NewValidationError("name", "product with this name already exists")
	}
	return err
}

func (t queries) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM pack_sizes WHERE product_id = $1`, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("product %d: %w", id, shared.ErrReferenced)
		}
		return err
	}
	_, err := t.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("product %d: %w", id, shared.ErrReferenced)
	}
	return err
}

func (t queries) ProductReferenced(ctx context.Context, id int64) (bool, error) {
	var referenced bool
	err := t.q.QueryRow(ctx, `SELECT
	EXISTS (SELECT 1 FROM inventory WHERE product_id = $1)
	OR EXISTS (SELECT 1 FROM sale_items si JOIN pack_sizes ps ON ps.id = si.pack_size_id WHERE ps.product_id = $1)`, id).Scan(&referenced)
	return referenced, err
}

func (t queries) InsertPackSize(ctx context.Context, ps PackSize) (PackSize, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO pack_sizes (product_id, units, sale_price) VALUES ($1, $2, $3) RETURNING id`,
		ps.ProductID, ps.Units, ps.SalePrice).Scan(&ps.ID)
	return ps, err
}

func (t queries) UpdatePackSize(ctx context.Context, ps PackSize) error {
	_, err := t.q.Exec(ctx, `UPDATE pack_sizes SET units = $1, sale_price = $2 WHERE id = $3 AND product_id = $4`,
		ps.Units, ps.SalePrice, ps.ID, ps.ProductID)
	return err
}

func (t queries) DeletePackSize(ctx context.Context, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM pack_sizes WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("pack size %d: %w", id, shared.ErrReferenced)
	}
	return err
}

func (t queries) PackSizeReferenced(ctx context.Context, id int64) (bool, error) {
	var referenced bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sale_items WHERE pack_size_id = $1)`, id).Scan(&referenced)
	return referenced, err
}
