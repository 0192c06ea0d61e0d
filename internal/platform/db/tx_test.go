package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/internal/shared"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	txs []*fakeTx
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if opts.IsoLevel != pgx.RepeatableRead {
		return nil, errors.New("unexpected isolation level")
	}
	tx := &fakeTx{}
	b.txs = append(b.txs, tx)
	return tx, nil
}

func TestWithTxCommits(t *testing.T) {
	b := &fakeBeginner{}
	err := WithTx(context.Background(), b, func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Len(t, b.txs, 1)
	require.True(t, b.txs[0].committed)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{}
	boom := errors.New("boom")
	err := WithTx(context.Background(), b, func(tx pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.Len(t, b.txs, 1)
	require.True(t, b.txs[0].rolledBack)
}

func TestWithTxRetriesSerializationFailures(t *testing.T) {
	b := &fakeBeginner{}
	calls := 0
	var observed []int
	err := WithTxObserved(context.Background(), b, func(attempt int, err error) {
		observed = append(observed, attempt)
	}, func(tx pgx.Tx) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []int{1, 2}, observed)
}

func TestWithTxSurfacesConflictAfterBoundedRetries(t *testing.T) {
	b := &fakeBeginner{}
	calls := 0
	err := WithTx(context.Background(), b, func(tx pgx.Tx) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, MaxTxAttempts, calls)
	for _, tx := range b.txs {
		require.True(t, tx.rolledBack)
	}
}

func TestErrorClassification(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "suppliers_name_key"}
	require.True(t, IsUniqueViolation(unique))
	require.Equal(t, "suppliers_name_key", ConstraintName(unique))
	require.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, IsRetryable(errors.New("plain")))
}

func TestWhereNumbersPlaceholders(t *testing.T) {
	var w Where
	require.Equal(t, "", w.SQL())
	w.Add("name ILIKE ? OR generic_name ILIKE ?", Contains("para"))
	w.Add("category = ?", "CASH")
	require.Equal(t, " WHERE (name ILIKE $1 OR generic_name ILIKE $1) AND (category = $2)", w.SQL())
	require.Equal(t, []any{"%para%", "CASH"}, w.Args())
}
