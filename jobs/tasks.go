package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLedgerReconcile compares account balances with their ledger entries.
	TaskLedgerReconcile = "ledger:reconcile"
	// TaskInventoryExpiryScan reports stock on hand that is about to expire.
	TaskInventoryExpiryScan = "inventory:expiry-scan"
	// TaskIdempotencyCleanup prunes old idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// LedgerReconcilePayload carries no options today; it exists so the task
// body stays JSON like every other task.
type LedgerReconcilePayload struct {
	Trigger string `json:"trigger,omitempty"`
}

// ExpiryScanPayload selects the look-ahead window.
type ExpiryScanPayload struct {
	WithinDays int `json:"within_days"`
}

// IdempotencyCleanupPayload selects how long keys are kept.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewLedgerReconcileTask constructs the reconcile task.
func NewLedgerReconcileTask(trigger string) (*asynq.Task, error) {
	return newTask(TaskLedgerReconcile, LedgerReconcilePayload{Trigger: trigger})
}

// NewExpiryScanTask constructs the expiry scan task.
func NewExpiryScanTask(withinDays int) (*asynq.Task, error) {
	if withinDays <= 0 {
		return nil, fmt.Errorf("jobs: expiry window must be positive, got %d", withinDays)
	}
	return newTask(TaskInventoryExpiryScan, ExpiryScanPayload{WithinDays: withinDays})
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	if retentionHours <= 0 {
		return nil, fmt.Errorf("jobs: retention must be positive, got %d", retentionHours)
	}
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{RetentionHours: retentionHours})
}

// Schedule carries the configured job windows. The worker's cron entries and
// manual runs both build their tasks from it.
type Schedule struct {
	ExpiryWindowDays     int
	IdempotencyRetention time.Duration
}

// DefaultSchedule matches the configuration defaults.
var DefaultSchedule = Schedule{ExpiryWindowDays: 30, IdempotencyRetention: 7 * 24 * time.Hour}

// ErrUnknownJob is returned for job names with no registered task.
var ErrUnknownJob = errors.New("jobs: unsupported job")

// Task builds the named task with the schedule's windows. trigger is recorded
// on the reconcile payload ("cron" or "manual").
func (s Schedule) Task(name, trigger string) (*asynq.Task, error) {
	switch name {
	case TaskLedgerReconcile:
		return NewLedgerReconcileTask(trigger)
	case TaskInventoryExpiryScan:
		return NewExpiryScanTask(s.ExpiryWindowDays)
	case TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(int(s.IdempotencyRetention / time.Hour))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault)), nil
}
