package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/inventory"
	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/shared"
)

// idempotencyModule scopes purchase keys in idempotency_keys.
const idempotencyModule = "procurement.purchase"

// TxRepository exposes transactional operations.
type TxRepository interface {
	accounts.LedgerStore
	SupplierAccount(ctx context.Context, supplierID int64) (int64, error)
	MissingProducts(ctx context.Context, ids []int64) ([]int64, error)
	ClaimKey(ctx context.Context, key string) error
	InsertPurchase(ctx context.Context, p Purchase) (Purchase, error)
	InsertItem(ctx context.Context, it inventory.Item) (inventory.Item, error)
	LockPurchase(ctx context.Context, id int64) (Purchase, error)
	UpdateHeader(ctx context.Context, p Purchase) error
	HasItems(ctx context.Context, id int64) (bool, error)
	DeletePurchase(ctx context.Context, id int64) error
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

type ledger = accounts.Store

type txRepo struct {
	*ledger
	*inventory.Store
	q    db.DBTX
	idem *shared.IdempotencyStore
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxObserved(ctx, r.pool, r.observe, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			ledger: accounts.NewStore(tx),
			Store:  inventory.NewStore(tx),
			q:      tx,
			idem:   shared.NewIdempotencyStore(tx),
		})
	})
}

const purchaseColumns = `id, supplier_id, date, invoice, total`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		p    Purchase
		date time.Time
	)
	if err := row.Scan(&p.ID, &p.SupplierID, &date, &p.Invoice, &p.Total); err != nil {
		return Purchase{}, err
	}
	p.Date = shared.NewDate(date)
	return p, nil
}

// Get returns a purchase with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Purchase, error) {
	p, err := getPurchase(ctx, r.pool, id, "")
	if err != nil {
		return Purchase{}, err
	}
	p.Items, err = inventory.NewStore(r.pool).ItemsByPurchase(ctx, id)
	if p.Items == nil {
		p.Items = []inventory.Item{}
	}
	return p, err
}

func getPurchase(ctx context.Context, q db.DBTX, id int64, suffix string) (Purchase, error) {
	p, err := scanPurchase(q.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, fmt.Errorf("purchase %d: %w", id, shared.ErrNotFound)
	}
	return p, err
}

// List returns purchases ordered by date then newest id, items attached.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Purchase, error) {
	var w db.Where
	if f.SupplierID != nil {
		w.Add("supplier_id = ?", *f.SupplierID)
	}
	if f.Date.From != nil {
		w.Add("date >= ?", f.Date.From.Time)
	}
	if f.Date.To != nil {
		w.Add("date <= ?", f.Date.To.Time)
	}
	if f.Search != "" {
		w.Add("invoice ILIKE ?", db.Contains(f.Search))
	}
	rows, err := r.pool.Query(ctx, `SELECT `+purchaseColumns+` FROM purchases`+w.SQL()+` ORDER BY date, id DESC`, w.Args()...)
	if err != nil {
		return nil, err
	}
	var (
		out   []Purchase
		index = make(map[int64]int)
	)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		p.Items = []inventory.Item{}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(out))
	for _, p := range out {
		ids = append(ids, p.ID)
	}
	items, err := inventory.NewStore(r.pool).ItemsByPurchases(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		i := index[it.PurchaseID]
		out[i].Items = append(out[i].Items, it)
	}
	return out, nil
}

func (t *txRepo) SupplierAccount(ctx context.Context, supplierID int64) (int64, error) {
	var accountID int64
	err := t.q.QueryRow(ctx, `SELECT account_id FROM suppliers WHERE id = $1`, supplierID).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("supplier %d: %w", supplierID, shared.ErrNotFound)
	}
	return accountID, err
}

func (t *txRepo) MissingProducts(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := t.q.Query(ctx, `SELECT id FROM unnest($1::bigint[]) AS want(id)
WHERE NOT EXISTS (SELECT 1 FROM products p WHERE p.id = want.id)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var missing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}

func (t *txRepo) ClaimKey(ctx context.Context, key string) error {
	return t.idem.CheckAndInsert(ctx, key, idempotencyModule)
}

func (t *txRepo) InsertPurchase(ctx context.Context, p Purchase) (Purchase, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO purchases (supplier_id, date, invoice, total) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.SupplierID, p.Date.Time, p.Invoice, p.Total).Scan(&p.ID)
	return p, err
}

func (t *txRepo) LockPurchase(ctx context.Context, id int64) (Purchase, error) {
	return getPurchase(ctx, t.q, id, " FOR UPDATE")
}

func (t *txRepo) UpdateHeader(ctx context.Context, p Purchase) error {
	_, err := t.q.Exec(ctx, `UPDATE purchases SET date = $1, invoice = $2 WHERE id = $3`, p.Date.Time, p.Invoice, p.ID)
	return err
}

func (t *txRepo) HasItems(ctx context.Context, id int64) (bool, error) {
	var has bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM inventory WHERE purchase_id = $1)`, id).Scan(&has)
	return has, err
}

func (t *txRepo) DeletePurchase(ctx context.Context, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("purchase %d: %w", id, shared.ErrReferenced)
	}
	return err
}
