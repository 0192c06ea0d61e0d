package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/dawa-pos/dawa/internal/shared"
)

// ErrBalanceOverflow is returned when an adjustment would overflow int64.
var ErrBalanceOverflow = errors.New("ledger: balance overflow")

// LedgerStore is the transaction-scoped persistence Adjust runs against.
type LedgerStore interface {
	// LockAccount loads the account and holds a row lock until the
	// surrounding transaction ends.
	LockAccount(ctx context.Context, id int64) (Account, error)
	SetBalance(ctx context.Context, id int64, balance int64) error
	InsertEntry(ctx context.Context, entry Entry) (Entry, error)
}

// Adjust applies balance += delta to the account and appends a ledger entry
// referencing the operation. No floor or ceiling is enforced. A zero delta
// is a no-op that still verifies the account exists.
func Adjust(ctx context.Context, st LedgerStore, accountID, delta int64, ref Ref) (int64, error) {
	acc, err := st.LockAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if delta == 0 {
		return acc.Balance, nil
	}
	next, ok := shared.AddAmounts(acc.Balance, delta)
	if !ok {
		return 0, fmt.Errorf("account %d: %w: %w", accountID, shared.ErrValidation, ErrBalanceOverflow)
	}
	if err := st.SetBalance(ctx, accountID, next); err != nil {
		return 0, fmt.Errorf("set balance: %w", err)
	}
	if _, err := st.InsertEntry(ctx, Entry{
		AccountID:    accountID,
		Delta:        delta,
		BalanceAfter: next,
		RefKind:      ref.Kind,
		RefID:        ref.ID,
	}); err != nil {
		return 0, fmt.Errorf("insert ledger entry: %w", err)
	}
	return next, nil
}
