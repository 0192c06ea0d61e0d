package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dawa-pos/dawa/internal/inventory"
	jobmetrics "github.com/dawa-pos/dawa/internal/jobs"
	"github.com/dawa-pos/dawa/internal/shared"
)

// ExpirySource lists stock expiring on or before a date.
type ExpirySource interface {
	ExpiringStock(ctx context.Context, before shared.Date) ([]inventory.ExpiryNotice, error)
}

// ExpiryScanJob logs inventory rows whose expiry date falls inside the window.
type ExpiryScanJob struct {
	Source  ExpirySource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewExpiryScanJob initialises the expiry scan handler.
func NewExpiryScanJob(source ExpirySource, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExpiryScanJob {
	return &ExpiryScanJob{
		Source:  source,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Source == nil {
		return errors.New("expiry scan: handler not configured")
	}
	var payload ExpiryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WithinDays <= 0 {
		payload.WithinDays = 30
	}

	tracker := j.Metrics.Track(TaskInventoryExpiryScan)
	defer func() { resultErr = tracker.End(resultErr) }()

	before := shared.NewDate(j.clock().AddDate(0, 0, payload.WithinDays))
	logger := j.logger().With(slog.Int("within_days", payload.WithinDays), slog.String("before", before.String()))

	notices, err := j.Source.ExpiringStock(ctx, before)
	if err != nil {
		logger.Error("expiry scan failed", slog.Any("error", err))
		return err
	}
	j.Metrics.SetExpiringStock(len(notices))
	for _, n := range notices {
		logger.Warn("stock expiring",
			slog.Int64("inventory_id", n.ItemID),
			slog.Int64("product_id", n.ProductID),
			slog.String("batch_number", n.BatchNumber),
			slog.String("expiry_date", n.ExpiryDate.String()),
			slog.Int64("available_units", n.AvailableUnits),
		)
	}
	logger.Info("expiry scan completed", slog.Int("items", len(notices)))
	return nil
}

func (j *ExpiryScanJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default().With(slog.String("job", TaskInventoryExpiryScan))
	}
	return j.Logger.With(slog.String("job", TaskInventoryExpiryScan))
}
