package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/shared"
)

const accountSelect = `SELECT a.id, a.name, a.category, a.balance, a.created_at, s.id
FROM accounts a LEFT JOIN suppliers s ON s.account_id = a.id`

// Store implements account and ledger persistence over a pool or a transaction.
// Other modules embed it in their transactional repositories so ledger
// adjustments share their unit of work.
type Store struct {
	db db.DBTX
}

// NewStore wraps q.
func NewStore(q db.DBTX) *Store {
	return &Store{db: q}
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a          Account
		supplierID *int64
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Category, &a.Balance, &a.CreatedAt, &supplierID); err != nil {
		return Account{}, err
	}
	if supplierID != nil {
		a.Owner = &Owner{Kind: OwnerSupplier, ID: *supplierID}
	}
	return a, nil
}

// LockAccount selects the account FOR UPDATE.
func (s *Store) LockAccount(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx, accountSelect+` WHERE a.id = $1 FOR UPDATE OF a`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	return a, err
}

// SetBalance overwrites the stored balance.
func (s *Store) SetBalance(ctx context.Context, id int64, balance int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// InsertEntry appends a ledger entry.
func (s *Store) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	err := s.db.QueryRow(ctx, `INSERT INTO ledger_entries (account_id, delta, balance_after, ref_kind, ref_id)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		e.AccountID, e.Delta, e.BalanceAfter, e.RefKind, e.RefID).Scan(&e.ID, &e.CreatedAt)
	return e, err
}

// CreateAccount inserts an account with a zero balance.
func (s *Store) CreateAccount(ctx context.Context, a Account) (Account, error) {
	err := s.db.QueryRow(ctx, `INSERT INTO accounts (name, category, balance) VALUES ($1, $2, 0) RETURNING id, created_at`,
		a.Name, a.Category).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Account{}, shared.NewValidationError("name", "account with this name already exists")
		}
		return Account{}, err
	}
	a.Balance = 0
	return a, nil
}

// GetAccount loads one account.
func (s *Store) GetAccount(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx, accountSelect+` WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	return a, err
}

// UpdateAccount writes name and category.
func (s *Store) UpdateAccount(ctx context.Context, a Account) error {
	tag, err := s.db.Exec(ctx, `UPDATE accounts SET name = $1, category = $2 WHERE id = $3`, a.Name, a.Category, a.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.NewValidationError("name", "account with this name already exists")
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", a.ID, shared.ErrNotFound)
	}
	return nil
}

// DeleteAccount removes an account row.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("account %d: %w", id, shared.ErrReferenced)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// AccountNameTaken reports whether another account already uses name.
func (s *Store) AccountNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE name = $1 AND id <> $2)`, name, excludeID).Scan(&taken)
	return taken, err
}

// AccountReferenced reports whether expenses, sales or ledger entries point at the account.
func (s *Store) AccountReferenced(ctx context.Context, id int64) (bool, error) {
	var referenced bool
	err := s.db.QueryRow(ctx, `SELECT
	EXISTS (SELECT 1 FROM expenses WHERE account_id = $1)
	OR EXISTS (SELECT 1 FROM sales WHERE account_id = $1)
	OR EXISTS (SELECT 1 FROM ledger_entries WHERE account_id = $1)`, id).Scan(&referenced)
	return referenced, err
}

// ListAccounts returns accounts ordered by name, id.
func (s *Store) ListAccounts(ctx context.Context, f ListFilter) ([]Account, error) {
	var w db.Where
	if f.Search != "" {
		w.Add("a.name ILIKE ?", db.Contains(f.Search))
	}
	if f.Name != "" {
		w.Add("a.name = ?", f.Name)
	}
	if f.Category != "" {
		w.Add("a.category = ?", f.Category)
	}
	if f.Created.From != nil {
		w.Add("a.created_at::date >= ?", f.Created.From.Time)
	}
	if f.Created.To != nil {
		w.Add("a.created_at::date <= ?", f.Created.To.Time)
	}
	rows, err := s.db.Query(ctx, accountSelect+w.SQL()+` ORDER BY a.name, a.id`, w.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListEntries returns the ledger of one account, oldest first.
func (s *Store) ListEntries(ctx context.Context, accountID int64) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT id, account_id, delta, balance_after, ref_kind, ref_id, created_at
FROM ledger_entries WHERE account_id = $1 ORDER BY id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Delta, &e.BalanceAfter, &e.RefKind, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Balances returns every account balance keyed by id.
func (s *Store) Balances(ctx context.Context) (map[int64]int64, error) {
	return s.sumQuery(ctx, `SELECT id, balance FROM accounts`)
}

// EntryTotals returns Σ delta per account that has entries.
func (s *Store) EntryTotals(ctx context.Context) (map[int64]int64, error) {
	return s.sumQuery(ctx, `SELECT account_id, SUM(delta)::bigint FROM ledger_entries GROUP BY account_id`)
}

func (s *Store) sumQuery(ctx context.Context, sql string) (map[int64]int64, error) {
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]int64)
	for rows.Next() {
		var id, v int64
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, rows.Err()
}

// TxRepository exposes transactional account operations.
type TxRepository interface {
	LedgerStore
	CreateAccount(ctx context.Context, a Account) (Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	UpdateAccount(ctx context.Context, a Account) error
	DeleteAccount(ctx context.Context, id int64) error
	AccountNameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
	AccountReferenced(ctx context.Context, id int64) (bool, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool    *pgxpool.Pool
	observe db.ConflictObserver
	*Store
}

// NewRepository constructs a repository. observe may be nil.
func NewRepository(pool *pgxpool.Pool, observe db.ConflictObserver) *Repository {
	return &Repository{pool: pool, observe: observe, Store: NewStore(pool)}
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxObserved(ctx, r.pool, r.observe, func(tx pgx.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}
