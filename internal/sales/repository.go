package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/shared"
)

// TxRepository exposes transactional operations.
type TxRepository interface {
	accounts.LedgerStore
	CustomerExists(ctx context.Context, id int64) (bool, error)
	PackSizePrices(ctx context.Context, ids []int64) (map[int64]int64, error)
	InsertSale(ctx context.Context, s Sale) (Sale, error)
	InsertItem(ctx context.Context, it Item) (Item, error)
	LockSale(ctx context.Context, id int64) (Sale, error)
	HasItems(ctx context.Context, id int64) (bool, error)
	DeleteSale(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool    *pgxpool.Pool
	observe db.ConflictObserver
}

func NewRepository(pool *pgxpool.Pool, observe db.ConflictObserver) *Repository {
	return &Repository{pool: pool, observe: observe}
}

type txRepo struct {
	*accounts.Store
	q db.DBTX
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxObserved(ctx, r.pool, r.observe, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Store: accounts.NewStore(tx), q: tx})
	})
}

const saleColumns = `id, customer_id, account_id, date, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var (
		s    Sale
		date time.Time
	)
	if err := row.Scan(&s.ID, &s.CustomerID, &s.AccountID, &date, &s.CreatedAt); err != nil {
		return Sale{}, err
	}
	s.Date = shared.NewDate(date)
	s.Items = []Item{}
	return s, nil
}

func getSale(ctx context.Context, q db.DBTX, id int64, suffix string) (Sale, error) {
	s, err := scanSale(q.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, fmt.Errorf("sale %d: %w", id, shared.ErrNotFound)
	}
	return s, err
}

// Get returns a sale with its items and totals.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	s, err := getSale(ctx, r.pool, id, "")
	if err != nil {
		return Sale{}, err
	}
	out := []Sale{s}
	if err := r.attachItems(ctx, out); err != nil {
		return Sale{}, err
	}
	return out[0], nil
}

// List returns sales newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Sale, error) {
	var w db.Where
	if f.CustomerID != nil {
		w.Add("customer_id = ?", *f.CustomerID)
	}
	if f.Date.From != nil {
		w.Add("date >= ?", f.Date.From.Time)
	}
	if f.Date.To != nil {
		w.Add("date <= ?", f.Date.To.Time)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales`+w.SQL()+` ORDER BY date DESC, id DESC`, w.Args()...)
	if err != nil {
		return nil, err
	}
	var out []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, r.attachItems(ctx, out)
}

func (r *Repository) attachItems(ctx context.Context, sales []Sale) error {
	if len(sales) == 0 {
		return nil
	}
	index := make(map[int64]int, len(sales))
	ids := make([]int64, 0, len(sales))
	for i, s := range sales {
		index[s.ID] = i
		ids = append(ids, s.ID)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, pack_size_id, sale_price, quantity FROM sale_items
WHERE sale_id = ANY($1) ORDER BY sale_id, id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.SaleID, &it.PackSizeID, &it.SalePrice, &it.Quantity); err != nil {
			return err
		}
		i := index[it.SaleID]
		sales[i].Items = append(sales[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range sales {
		if !fillTotals(&sales[i]) {
			return fmt.Errorf("sale %d: total overflows", sales[i].ID)
		}
	}
	return nil
}

func (t *txRepo) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (t *txRepo) PackSizePrices(ctx context.Context, ids []int64) (map[int64]int64, error) {
	rows, err := t.q.Query(ctx, `SELECT id, sale_price FROM pack_sizes WHERE id = ANY($1) FOR SHARE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	prices := make(map[int64]int64, len(ids))
	for rows.Next() {
		var id, price int64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		prices[id] = price
	}
	return prices, rows.Err()
}

func (t *txRepo) InsertSale(ctx context.Context, s Sale) (Sale, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO sales (customer_id, account_id, date, created_at) VALUES ($1, $2, $3, NOW())
RETURNING id, created_at`, s.CustomerID, s.AccountID, s.Date.Time).Scan(&s.ID, &s.CreatedAt)
	return s, err
}

func (t *txRepo) InsertItem(ctx context.Context, it Item) (Item, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO sale_items (sale_id, pack_size_id, sale_price, quantity) VALUES ($1, $2, $3, $4) RETURNING id`,
		it.SaleID, it.PackSizeID, it.SalePrice, it.Quantity).Scan(&it.ID)
	return it, err
}

func (t *txRepo) LockSale(ctx context.Context, id int64) (Sale, error) {
	return getSale(ctx, t.q, id, " FOR UPDATE")
}

func (t *txRepo) HasItems(ctx context.Context, id int64) (bool, error) {
	var has bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sale_items WHERE sale_id = $1)`, id).Scan(&has)
	return has, err
}

func (t *txRepo) DeleteSale(ctx context.Context, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("sale %d: %w", id, shared.ErrReferenced)
	}
	return err
}
