package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/platform/httpx"
	"github.com/dawa-pos/dawa/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Sale, error)
	List(ctx context.Context, f ListFilter) ([]Sale, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service provides business logic for sales operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs a sales service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, p shared.Principal, f ListFilter) ([]Sale, error) {
	if err := p.Require(shared.PermSalesView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Sale, error) {
	if err := p.Require(shared.PermSalesView); err != nil {
		return Sale{}, err
	}
	return s.repo.Get(ctx, id)
}

// CreateSale records a sale, pricing each item from its pack size. When a
// settlement account is named it is credited with the sale total in the same
// transaction; otherwise the sale does not touch the ledger.
func (s *Service) CreateSale(ctx context.Context, p shared.Principal, req CreateSaleRequest) (Sale, error) {
	if err := p.Require(shared.PermSalesAdd); err != nil {
		return Sale{}, err
	}
	if err := httpx.Validate(req); err != nil {
		return Sale{}, err
	}
	if req.Date.IsZero() {
		return Sale{}, shared.NewValidationError("date", "this field is required")
	}
	var created Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if req.CustomerID != nil {
			ok, err := tx.CustomerExists(ctx, *req.CustomerID)
			if err != nil {
				return err
			}
			if !ok {
				return shared.ReferenceNotFound("customer_id")
			}
		}
		if req.AccountID != nil {
			if err := checkSettlementAccount(ctx, tx, *req.AccountID); err != nil {
				return err
			}
		}
		sale := Sale{CustomerID: req.CustomerID, AccountID: req.AccountID, Date: req.Date}
		items, err := priceItems(ctx, tx, req.Items)
		if err != nil {
			return err
		}
		sale.Items = items
		if !fillTotals(&sale) {
			return shared.NewValidationError("items", "sale total is too large")
		}
		inserted, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		sale.ID, sale.CreatedAt = inserted.ID, inserted.CreatedAt
		for i := range sale.Items {
			sale.Items[i].SaleID = sale.ID
			it, err := tx.InsertItem(ctx, sale.Items[i])
			if err != nil {
				return fmt.Errorf("insert sale item %d: %w", i, err)
			}
			sale.Items[i].ID = it.ID
		}
		if sale.AccountID != nil {
			ref := accounts.Ref{Kind: accounts.RefSale, ID: sale.ID}
			if _, err := accounts.Adjust(ctx, tx, *sale.AccountID, sale.Total, ref); err != nil {
				return fmt.Errorf("credit sale account: %w", err)
			}
		}
		created = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.logger.Info("sale recorded",
		slog.Int64("sale_id", created.ID),
		slog.Int64("total", created.Total),
		slog.Bool("posted", created.AccountID != nil))
	s.record(ctx, p, "sale.create", created.ID, map[string]any{"total": created.Total})
	return created, nil
}

func checkSettlementAccount(ctx context.Context, tx TxRepository, id int64) error {
	acc, err := tx.LockAccount(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.ReferenceNotFound("account_id")
	}
	if err != nil {
		return err
	}
	if !acc.Category.Settlement() {
		return shared.NewValidationError("account_id", "must be a cash, bank or mobile money account")
	}
	return nil
}

func priceItems(ctx context.Context, tx TxRepository, reqs []ItemRequest) ([]Item, error) {
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.PackSizeID)
	}
	prices, err := tx.PackSizePrices(ctx, ids)
	if err != nil {
		return nil, err
	}
	verr := &shared.ValidationError{}
	items := make([]Item, 0, len(reqs))
	for i, r := range reqs {
		price, ok := prices[r.PackSizeID]
		if !ok {
			verr.Add(fmt.Sprintf("items[%d].pack_size_id", i), "does not exist")
			continue
		}
		items = append(items, Item{PackSizeID: r.PackSizeID, SalePrice: price, Quantity: r.Quantity})
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a sale that owns no items.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if err := p.Require(shared.PermSalesDelete); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockSale(ctx, id); err != nil {
			return err
		}
		has, err := tx.HasItems(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return fmt.Errorf("sale %d has items: %w", id, shared.ErrReferenced)
		}
		return tx.DeleteSale(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, p, "sale.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, p shared.Principal, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditEntry(p, action, "sale", id, meta)); err != nil {
		s.logger.Warn("audit sale", slog.String("action", action), slog.Any("error", err))
	}
}
