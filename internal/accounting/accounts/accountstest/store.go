// Package accountstest provides an in-memory account ledger for tests.
package accountstest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/shared"
)

// Store is an in-memory implementation of the accounts repository ports.
// Transactions are serialised and rolled back by snapshot.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts   map[int64]accounts.Account
	entries    []accounts.Entry
	referenced map[int64]bool
	nextID     int64
	locks      int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts:   make(map[int64]accounts.Account),
		referenced: make(map[int64]bool),
	}
}

// Seed inserts an account as-is, assigning an id when missing. The balance
// is taken verbatim without a ledger entry.
func (s *Store) Seed(a accounts.Account) accounts.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.nextID++
		a.ID = s.nextID
	} else if a.ID > s.nextID {
		s.nextID = a.ID
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.accounts[a.ID] = a
	return a
}

// MarkReferenced flags an account as referenced by an expense or sale.
func (s *Store) MarkReferenced(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referenced[id] = true
}

// SetOwner attaches an owner back reference.
func (s *Store) SetOwner(id int64, owner *accounts.Owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[id]
	a.Owner = owner
	s.accounts[id] = a
}

// Account returns the stored account, or false.
func (s *Store) Account(id int64) (accounts.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	return a, ok
}

// AccountCount returns the number of stored accounts.
func (s *Store) AccountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// Entries returns a copy of all ledger entries.
func (s *Store) Entries() []accounts.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]accounts.Entry(nil), s.entries...)
}

// LockCount returns how many times LockAccount was called.
func (s *Store) LockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks
}

// Tx runs fn under the store-wide transaction lock and restores the ledger
// state when fn fails. Fakes of other modules wrap their own state in it.
func (s *Store) Tx(fn func() error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	restore := s.snapshot()
	if err := fn(); err != nil {
		restore()
		return err
	}
	return nil
}

func (s *Store) snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	accs := make(map[int64]accounts.Account, len(s.accounts))
	for k, v := range s.accounts {
		accs[k] = v
	}
	refs := make(map[int64]bool, len(s.referenced))
	for k, v := range s.referenced {
		refs[k] = v
	}
	entries := append([]accounts.Entry(nil), s.entries...)
	nextID := s.nextID
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.accounts = accs
		s.referenced = refs
		s.entries = entries
		s.nextID = nextID
	}
}

// WithTx implements accounts.RepositoryPort.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, accounts.TxRepository) error) error {
	return s.Tx(func() error { return fn(ctx, s) })
}

func (s *Store) LockAccount(ctx context.Context, id int64) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks++
	a, ok := s.accounts[id]
	if !ok {
		return accounts.Account{}, fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	return a, nil
}

func (s *Store) SetBalance(ctx context.Context, id int64, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	a.Balance = balance
	s.accounts[id] = a
	return nil
}

func (s *Store) InsertEntry(ctx context.Context, e accounts.Entry) (accounts.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.entries) + 1)
	e.CreatedAt = time.Now()
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *Store) CreateAccount(ctx context.Context, a accounts.Account) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Name == a.Name {
			return accounts.Account{}, shared.NewValidationError("name", "account with this name already exists")
		}
	}
	s.nextID++
	a.ID = s.nextID
	a.Balance = 0
	a.CreatedAt = time.Now()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return accounts.Account{}, fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a accounts.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.accounts[a.ID]
	if !ok {
		return fmt.Errorf("account %d: %w", a.ID, shared.ErrNotFound)
	}
	existing.Name = a.Name
	existing.Category = a.Category
	s.accounts[a.ID] = existing
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) AccountNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.accounts {
		if id != excludeID && a.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AccountReferenced(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.referenced[id] {
		return true, nil
	}
	for _, e := range s.entries {
		if e.AccountID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListAccounts(ctx context.Context, f accounts.ListFilter) ([]accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []accounts.Account
	for _, a := range s.accounts {
		if f.Search != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.Name != "" && a.Name != f.Name {
			continue
		}
		if f.Category != "" && a.Category != f.Category {
			continue
		}
		if !f.Created.Contains(shared.NewDate(a.CreatedAt)) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListEntries(ctx context.Context, accountID int64) ([]accounts.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []accounts.Entry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Balances mirrors accounts.Store.Balances.
func (s *Store) Balances(ctx context.Context) (map[int64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int64, len(s.accounts))
	for id, a := range s.accounts {
		out[id] = a.Balance
	}
	return out, nil
}

// EntryTotals mirrors accounts.Store.EntryTotals.
func (s *Store) EntryTotals(ctx context.Context) (map[int64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int64)
	for _, e := range s.entries {
		out[e.AccountID] += e.Delta
	}
	return out, nil
}
