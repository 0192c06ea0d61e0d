package reports

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dawa-pos/dawa/internal/shared"
)

// DefaultProductLimit caps the product movement report when no limit is given.
const DefaultProductLimit = 20

// Service builds trading reports.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

func checkRange(rng shared.DateRange) error {
	if rng.From != nil && rng.To != nil && rng.To.Before(rng.From.Time) {
		return shared.NewValidationError("date_before", "must not be earlier than date_after")
	}
	return nil
}

// Summary totals sales, purchases and expenses inside rng.
func (s *Service) Summary(ctx context.Context, p shared.Principal, rng shared.DateRange) (Summary, error) {
	if err := p.Require(shared.PermReportsView); err != nil {
		return Summary{}, err
	}
	if err := checkRange(rng); err != nil {
		return Summary{}, err
	}
	out := Summary{From: rng.From, To: rng.To}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Sales, err = s.store.SalesTotals(gctx, rng)
		return err
	})
	g.Go(func() (err error) {
		out.Purchases, err = s.store.PurchaseTotals(gctx, rng)
		return err
	})
	g.Go(func() (err error) {
		out.Expenses, err = s.store.ExpenseTotals(gctx, rng)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("summary report failed", slog.Any("error", err))
		return Summary{}, err
	}
	out.Net = out.Sales.Total - out.Purchases.Total - out.Expenses.Total
	return out, nil
}

// SalesByCustomer breaks sales inside rng down by customer, largest first.
func (s *Service) SalesByCustomer(ctx context.Context, p shared.Principal, rng shared.DateRange) ([]CustomerSales, error) {
	if err := p.Require(shared.PermReportsView); err != nil {
		return nil, err
	}
	if err := checkRange(rng); err != nil {
		return nil, err
	}
	return s.store.SalesByCustomer(ctx, rng)
}

// ProductSales lists the best selling products inside rng.
func (s *Service) ProductSales(ctx context.Context, p shared.Principal, rng shared.DateRange, limit int) ([]ProductSales, error) {
	if err := p.Require(shared.PermReportsView); err != nil {
		return nil, err
	}
	if err := checkRange(rng); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultProductLimit
	}
	if limit > 500 {
		return nil, shared.NewValidationError("limit", "must be at most 500")
	}
	return s.store.ProductSales(ctx, rng, limit)
}
