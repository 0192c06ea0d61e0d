package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/dawa-pos/dawa/internal/jobs"
	"github.com/dawa-pos/dawa/internal/shared"
)

// BalanceSource reads both sides of the ledger invariant.
type BalanceSource interface {
	Balances(ctx context.Context) (map[int64]int64, error)
	EntryTotals(ctx context.Context) (map[int64]int64, error)
}

// Drift is an account whose balance disagrees with its entries.
type Drift struct {
	AccountID int64
	Balance   int64
	Entries   int64
}

// Reconcile returns the drifting accounts ordered by id. An account without
// entries must hold a zero balance.
func Reconcile(balances, entries map[int64]int64) []Drift {
	var out []Drift
	for id, balance := range balances {
		if sum := entries[id]; sum != balance {
			out = append(out, Drift{AccountID: id, Balance: balance, Entries: sum})
		}
	}
	for id, sum := range entries {
		if _, ok := balances[id]; !ok {
			out = append(out, Drift{AccountID: id, Entries: sum})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

// LedgerReconcileJob checks Σ entries == balance for every account. A Redis
// lock keeps concurrent workers from running it twice.
type LedgerReconcileJob struct {
	Source  BalanceSource
	Locker  *redislock.Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	LockTTL time.Duration
}

// NewLedgerReconcileJob initialises the reconcile handler.
func NewLedgerReconcileJob(source BalanceSource, locker *redislock.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerReconcileJob {
	return &LedgerReconcileJob{Source: source, Locker: locker, Logger: logger, Metrics: metrics, LockTTL: 5 * time.Minute}
}

// Handle executes the reconcile task.
func (j *LedgerReconcileJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Source == nil {
		return errors.New("ledger reconcile: handler not configured")
	}
	logger := j.logger()

	if j.Locker != nil {
		lock, err := j.Locker.Obtain(ctx, shared.LedgerReconcileLockKey, j.LockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			logger.Info("ledger reconcile already running elsewhere")
			return nil
		}
		if err != nil {
			return fmt.Errorf("ledger reconcile: obtain lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				logger.Warn("release reconcile lock", slog.Any("error", err))
			}
		}()
	}

	tracker := j.Metrics.Track(TaskLedgerReconcile)
	defer func() { resultErr = tracker.End(resultErr) }()

	drift, err := j.Run(ctx)
	if err != nil {
		logger.Error("ledger reconcile failed", slog.Any("error", err))
		return err
	}
	j.Metrics.SetLedgerDrift(len(drift))
	for _, d := range drift {
		logger.Warn("ledger drift",
			slog.Int64("account_id", d.AccountID),
			slog.Int64("balance", d.Balance),
			slog.Int64("entries", d.Entries),
		)
	}
	logger.Info("ledger reconcile completed", slog.Int("drifting_accounts", len(drift)))
	return nil
}

// Run loads balances and entry sums concurrently and compares them.
func (j *LedgerReconcileJob) Run(ctx context.Context) ([]Drift, error) {
	var balances, entries map[int64]int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balances, err = j.Source.Balances(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = j.Source.EntryTotals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ledger reconcile: %w", err)
	}
	return Reconcile(balances, entries), nil
}

func (j *LedgerReconcileJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default().With(slog.String("job", TaskLedgerReconcile))
	}
	return j.Logger.With(slog.String("job", TaskLedgerReconcile))
}
