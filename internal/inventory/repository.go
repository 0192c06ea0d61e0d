package inventory

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

// Store runs inventory queries against a pool or a transaction. Procurement
// embeds it so that stock rows join the purchase transaction.
type Store struct {
	db db.DBTX
}

func NewStore(q db.DBTX) *Store {
	return &Store{db: q}
}

const itemColumns = `id, purchase_id, product_id, batch_number, expiry_date, pack_size, pack_cost, quantity, available_units`

func scanItem(row pgx.Row) (Item, error) {
	var (
		it     Item
		batch  *string
		expiry *time.Time
	)
	if err := row.Scan(&it.ID, &it.PurchaseID, &it.ProductID, &batch, &expiry,
		&it.PackSize, &it.PackCost, &it.Quantity, &it.AvailableUnits); err != nil {
		return Item{}, err
	}
	if batch != nil {
		it.BatchNumber = *batch
	}
	if expiry != nil {
		it.ExpiryDate = shared.NewDate(*expiry)
	}
	return it, nil
}

func nullable(it Item) (*string, *time.Time) {
	var (
		batch  *string
		expiry *time.Time
	)
	if it.BatchNumber != "" {
		batch = &it.BatchNumber
	}
	if !it.ExpiryDate.IsZero() {
		expiry = &it.ExpiryDate.Time
	}
	return batch, expiry
}

// InsertItem stores a derived item.
func (s *Store) InsertItem(ctx context.Context, it Item) (Item, error) {
	batch, expiry := nullable(it)
	err := s.db.QueryRow(ctx, `INSERT INTO inventory (purchase_id, product_id, batch_number, expiry_date, pack_size, pack_cost, quantity, available_units)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		it.PurchaseID, it.ProductID, batch, expiry, it.PackSize, it.PackCost, it.Quantity, it.AvailableUnits).Scan(&it.ID)
	if db.IsForeignKeyViolation(err) {
		return Item{}, shared.ReferenceNotFound("product_id")
	}
	return it, err
}

// GetItem loads one item.
func (s *Store) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.itemQuery(ctx, `SELECT `+itemColumns+` FROM inventory WHERE id = $1`, id)
}

// LockItem loads one item and holds its row lock.
func (s *Store) LockItem(ctx context.Context, id int64) (Item, error) {
	return s.itemQuery(ctx, `SELECT `+itemColumns+` FROM inventory WHERE id = $1 FOR UPDATE`, id)
}

func (s *Store) itemQuery(ctx context.Context, sql string, id int64) (Item, error) {
	it, err := scanItem(s.db.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("inventory item %d: %w", id, shared.ErrNotFound)
	}
	return it, err
}

// UpdateItem rewrites the writable and derived columns.
func (s *Store) UpdateItem(ctx context.Context, it Item) error {
	batch, expiry := nullable(it)
	_, err := s.db.Exec(ctx, `UPDATE inventory SET batch_number = $1, expiry_date = $2, pack_size = $3, pack_cost = $4,
quantity = $5, available_units = $6 WHERE id = $7`,
		batch, expiry, it.PackSize, it.PackCost, it.Quantity, it.AvailableUnits, it.ID)
	return err
}

// ItemsByPurchase lists the items of a purchase in insertion order.
func (s *Store) ItemsByPurchase(ctx context.Context, purchaseID int64) ([]Item, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM inventory WHERE purchase_id = $1 ORDER BY id`, purchaseID)
}

// ItemsByPurchases lists the items of several purchases, grouped by purchase.
func (s *Store) ItemsByPurchases(ctx context.Context, purchaseIDs []int64) ([]Item, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM inventory WHERE purchase_id = ANY($1) ORDER BY purchase_id, id`, purchaseIDs)
}

// ListItems applies f and orders by id.
func (s *Store) ListItems(ctx context.Context, f ListFilter) ([]Item, error) {
	var w db.Where
	if f.ProductID != nil {
		w.Add("product_id = ?", *f.ProductID)
	}
	if f.PurchaseID != nil {
		w.Add("purchase_id = ?", *f.PurchaseID)
	}
	if f.BatchNumber != "" {
		w.Add("batch_number = ?", f.BatchNumber)
	}
	if f.ExpiringBefore != nil {
		w.Add("expiry_date <= ?", f.ExpiringBefore.Time)
	}
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM inventory`+w.SQL()+` ORDER BY id`, w.Args()...)
}

// ExpiringStock lists items with units on hand that expire on or before the date.
func (s *Store) ExpiringStock(ctx context.Context, before shared.Date) ([]Item, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM inventory
WHERE expiry_date IS NOT NULL AND expiry_date <= $1 AND available_units > 0 ORDER BY expiry_date, id`, before.Time)
}

func (s *Store) listItems(ctx context.Context, sql string, args ...any) ([]Item, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// LockPurchase loads the purchase total and its supplier's account, locking the purchase row.
func (s *Store) LockPurchase(ctx context.Context, purchaseID int64) (PurchaseHead, error) {
	head := PurchaseHead{ID: purchaseID}
	err := s.db.QueryRow(ctx, `SELECT p.total, s.account_id FROM purchases p
JOIN suppliers s ON s.id = p.supplier_id WHERE p.id = $1 FOR UPDATE OF p`, purchaseID).Scan(&head.Total, &head.SupplierAccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseHead{}, fmt.Errorf("purchase %d: %w", purchaseID, shared.ErrNotFound)
	}
	return head, err
}

// SetPurchaseTotal stores a recomputed purchase total.
func (s *Store) SetPurchaseTotal(ctx context.Context, purchaseID, total int64) error {
	_, err := s.db.Exec(ctx, `UPDATE purchases SET total = $1 WHERE id = $2`, total, purchaseID)
	return err
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	accounts.LedgerStore
	LockItem(ctx context.Context, id int64) (Item, error)
	UpdateItem(ctx context.Context, it Item) error
	LockPurchase(ctx context.Context, purchaseID int64) (PurchaseHead, error)
	SetPurchaseTotal(ctx context.Context, purchaseID, total int64) error
}

type ledger = accounts.Store

type txRepo struct {
	*ledger
	*Store
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool    *pgxpool.Pool
	observe db.ConflictObserver
	reads   *Store
}

func NewRepository(pool *pgxpool.Pool, observe db.ConflictObserver) *Repository {
	return &Repository{pool: pool, observe: observe, reads: NewStore(pool)}
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxObserved(ctx, r.pool, r.observe, func(tx pgx.Tx) error {
		return fn(ctx, txRepo{ledger: accounts.NewStore(tx), Store: NewStore(tx)})
	})
}

func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	return r.reads.GetItem(ctx, id)
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Item, error) {
	return r.reads.ListItems(ctx, f)
}

func (r *Repository) ExpiringStock(ctx context.Context, before shared.Date) ([]Item, error) {
	return r.reads.ExpiringStock(ctx, before)
}
