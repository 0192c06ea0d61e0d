package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/internal/inventory"
	jobmetrics "github.com/dawa-pos/dawa/internal/jobs"
	"github.com/dawa-pos/dawa/internal/shared"
)

type fakeBalances struct {
	balances map[int64]int64
	entries  map[int64]int64
	err      error
	calls    atomic.Int32
}

func (f *fakeBalances) Balances(ctx context.Context) (map[int64]int64, error) {
	f.calls.Add(1)
	return f.balances, f.err
}

func (f *fakeBalances) EntryTotals(ctx context.Context) (map[int64]int64, error) {
	return f.entries, nil
}

func TestReconcileFindsDrift(t *testing.T) {
	drift := Reconcile(
		map[int64]int64{1: -500, 2: 0, 3: 200, 4: 0},
		map[int64]int64{1: -500, 3: 150, 5: 10},
	)
	require.Equal(t, []Drift{
		{AccountID: 3, Balance: 200, Entries: 150},
		{AccountID: 5, Balance: 0, Entries: 10},
	}, drift)
}

func newLocker(t *testing.T) (*redislock.Client, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return redislock.New(client), client
}

func TestLedgerReconcileJobRunsUnderLock(t *testing.T) {
	ctx := context.Background()
	source := &fakeBalances{balances: map[int64]int64{1: 10}, entries: map[int64]int64{1: 10}}
	locker, _ := newLocker(t)
	job := NewLedgerReconcileJob(source, locker, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewLedgerReconcileTask("test")
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	require.EqualValues(t, 1, source.calls.Load())

	held, err := locker.Obtain(ctx, shared.LedgerReconcileLockKey, time.Minute, nil)
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	require.EqualValues(t, 1, source.calls.Load(), "a held lock skips the run")
	require.NoError(t, held.Release(ctx))

	require.NoError(t, job.Handle(ctx, task))
	require.EqualValues(t, 2, source.calls.Load())
}

func TestLedgerReconcileJobSurfacesErrors(t *testing.T) {
	boom := errors.New("db down")
	job := NewLedgerReconcileJob(&fakeBalances{err: boom}, nil, nil, nil)
	task, err := NewLedgerReconcileTask("test")
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

type fakeExpiry struct {
	before shared.Date
}

func (f *fakeExpiry) ExpiringStock(ctx context.Context, before shared.Date) ([]inventory.ExpiryNotice, error) {
	f.before = before
	return []inventory.ExpiryNotice{{ItemID: 1, ProductID: 2, AvailableUnits: 30}}, nil
}

func TestExpiryScanUsesWindow(t *testing.T) {
	source := &fakeExpiry{}
	job := NewExpiryScanJob(source, nil, nil)
	job.clock = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

	task, err := NewExpiryScanTask(14)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, "2024-03-15", source.before.String())

	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskInventoryExpiryScan, []byte("{"))), asynq.SkipRetry)
	_, err = NewExpiryScanTask(0)
	require.Error(t, err)
}

type fakePruner struct {
	olderThan time.Duration
}

func (f *fakePruner) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 3, nil
}

func TestIdempotencyCleanup(t *testing.T) {
	store := &fakePruner{}
	job := NewIdempotencyCleanupJob(store, nil, nil)
	task, err := NewIdempotencyCleanupTask(48)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 48*time.Hour, store.olderThan)
}

func TestScheduleTask(t *testing.T) {
	for _, name := range []string{TaskLedgerReconcile, TaskInventoryExpiryScan, TaskIdempotencyCleanup} {
		task, err := DefaultSchedule.Task(name, "manual")
		require.NoError(t, err)
		require.Equal(t, name, task.Type())
	}
	_, err := DefaultSchedule.Task("mail:send", "manual")
	require.ErrorIs(t, err, ErrUnknownJob)
}

func TestManualTriggerUsesConfiguredWindows(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()}, Schedule{
		ExpiryWindowDays:     45,
		IdempotencyRetention: 720 * time.Hour,
	})
	defer client.Close()
	ctx := context.Background()

	info, err := client.Trigger(ctx, TaskIdempotencyCleanup)
	require.NoError(t, err)
	var cleanup IdempotencyCleanupPayload
	require.NoError(t, json.Unmarshal(info.Payload, &cleanup))
	require.Equal(t, 720, cleanup.RetentionHours)

	info, err = client.Trigger(ctx, TaskInventoryExpiryScan)
	require.NoError(t, err)
	var expiry ExpiryScanPayload
	require.NoError(t, json.Unmarshal(info.Payload, &expiry))
	require.Equal(t, 45, expiry.WithinDays)

	info, err = client.Trigger(ctx, TaskLedgerReconcile)
	require.NoError(t, err)
	var reconcile LedgerReconcilePayload
	require.NoError(t, json.Unmarshal(info.Payload, &reconcile))
	require.Equal(t, "manual", reconcile.Trigger)

	_, err = client.Trigger(ctx, "mail:send")
	require.ErrorIs(t, err, ErrUnknownJob)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil, nil).MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats QueueStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, QueueDefault, stats.Queue)
}

type fakeEnqueuer struct {
	names []string
}

func (f *fakeEnqueuer) Trigger(_ context.Context, name string) (*asynq.TaskInfo, error) {
	if _, err := DefaultSchedule.Task(name, "manual"); err != nil {
		return nil, err
	}
	f.names = append(f.names, name)
	return &asynq.TaskInfo{ID: "t-1", Type: name, Queue: QueueDefault}, nil
}

func TestTriggerEndpoint(t *testing.T) {
	enq := &fakeEnqueuer{}
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, enq, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/"+TaskLedgerReconcile, nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Equal(t, []string{TaskLedgerReconcile}, enq.names)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/mail:send", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r2 := chi.NewRouter()
	r2.Route("/jobs", NewHandler(nil, nil, nil).MountRoutes)
	r2.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/"+TaskLedgerReconcile, nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
