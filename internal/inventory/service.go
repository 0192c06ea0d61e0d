package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/platform/httpx"
	"github.com/dawa-pos/dawa/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Item, error)
	List(ctx context.Context, f ListFilter) ([]Item, error)
	ExpiringStock(ctx context.Context, before shared.Date) ([]Item, error)
}

// Service coordinates inventory operations.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, p shared.Principal, f ListFilter) ([]Item, error) {
	if err := p.Require(shared.PermInventoryView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Item, error) {
	if err := p.Require(shared.PermInventoryView); err != nil {
		return Item{}, err
	}
	return s.repo.Get(ctx, id)
}

// Update corrects an item. The owning purchase total is recomputed and the
// supplier account absorbs the difference in the same transaction, so the
// purchase and ledger stay consistent with their items.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, form Form) (Item, error) {
	if err := p.Require(shared.PermInventoryChange); err != nil {
		return Item{}, err
	}
	if err := httpx.Validate(form); err != nil {
		return Item{}, err
	}
	var updated Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.LockItem(ctx, id)
		if err != nil {
			return err
		}
		if form.ProductID != cur.ProductID {
			return shared.NewValidationError("product_id", "cannot be changed")
		}
		head, err := tx.LockPurchase(ctx, cur.PurchaseID)
		if err != nil {
			return err
		}
		oldLine, err := cur.Total()
		if err != nil {
			return err
		}
		next, err := form.Item(cur.PurchaseID)
		if err != nil {
			return err
		}
		next.ID = cur.ID
		newLine, err := next.Total()
		if err != nil {
			return err
		}
		delta := newLine - oldLine
		total, ok := shared.AddAmounts(head.Total, delta)
		if !ok {
			return fmt.Errorf("%w: purchase total overflows", shared.ErrValidation)
		}
		if err := tx.UpdateItem(ctx, next); err != nil {
			return err
		}
		if delta != 0 {
			if err := tx.SetPurchaseTotal(ctx, head.ID, total); err != nil {
				return err
			}
			ref := accounts.Ref{Kind: accounts.RefPurchaseRevision, ID: head.ID}
			if _, err := accounts.Adjust(ctx, tx, head.SupplierAccountID, -delta, ref); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	s.logger.Info("inventory item updated", slog.Int64("item_id", id), slog.Int64("purchase_id", updated.PurchaseID))
	return updated, nil
}

// ExpiringStock lists stock on hand expiring on or before the date.
func (s *Service) ExpiringStock(ctx context.Context, before shared.Date) ([]ExpiryNotice, error) {
	items, err := s.repo.ExpiringStock(ctx, before)
	if err != nil {
		return nil, err
	}
	return Notices(items), nil
}
