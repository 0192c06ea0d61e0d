package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/inventory"
	"github.com/dawa-pos/dawa/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Purchase, error)
	List(ctx context.Context, f ListFilter) ([]Purchase, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates procurement flows.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, p shared.Principal, f ListFilter) ([]Purchase, error) {
	if err := p.Require(shared.PermPurchasesView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Purchase, error) {
	if err := p.Require(shared.PermPurchasesView); err != nil {
		return Purchase{}, err
	}
	return s.repo.Get(ctx, id)
}

// CreatePurchase validates the invoice against its lines and commits the
// purchase, its stock rows and the supplier debit as one unit. A reused
// idempotency key fails the whole unit before anything is written.
func (s *Service) CreatePurchase(ctx context.Context, p shared.Principal, in CreateInput) (Purchase, error) {
	if err := p.Require(shared.PermPurchasesAdd); err != nil {
		return Purchase{}, err
	}
	if err := validateCreate(&in); err != nil {
		return Purchase{}, err
	}
	var created Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accountID, err := tx.SupplierAccount(ctx, in.SupplierID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ReferenceNotFound("supplier_id")
		}
		if err != nil {
			return err
		}
		if err := checkProducts(ctx, tx, in.Items); err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			if err := tx.ClaimKey(ctx, in.IdempotencyKey); err != nil {
				return err
			}
		}
		purchase, err := tx.InsertPurchase(ctx, Purchase{
			SupplierID: in.SupplierID,
			Date:       in.Date,
			Invoice:    in.Invoice,
			Total:      in.Total,
		})
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		purchase.Items = make([]inventory.Item, 0, len(in.Items))
		for i, line := range in.Items {
			item, err := line.Item(purchase.ID)
			if err != nil {
				return shared.NewValidationError(lineField(i, "quantity"), "available units are too large")
			}
			item, err = tx.InsertItem(ctx, item)
			if err != nil {
				return fmt.Errorf("insert item %d: %w", i, err)
			}
			purchase.Items = append(purchase.Items, item)
		}
		ref := accounts.Ref{Kind: accounts.RefPurchase, ID: purchase.ID}
		if _, err := accounts.Adjust(ctx, tx, accountID, -in.Total, ref); err != nil {
			return fmt.Errorf("debit supplier account: %w", err)
		}
		created = purchase
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	s.logger.Info("purchase created",
		slog.Int64("purchase_id", created.ID),
		slog.Int64("supplier_id", created.SupplierID),
		slog.Int64("total", created.Total),
		slog.Int("items", len(created.Items)))
	s.record(ctx, p, "purchase.create", created.ID, map[string]any{"total": created.Total, "invoice": created.Invoice})
	return created, nil
}

func checkProducts(ctx context.Context, tx TxRepository, items []inventory.Form) error {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	missing, err := tx.MissingProducts(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	gone := make(map[int64]struct{}, len(missing))
	for _, id := range missing {
		gone[id] = struct{}{}
	}
	verr := &shared.ValidationError{}
	for i, it := range items {
		if _, ok := gone[it.ProductID]; ok {
			verr.Add(lineField(i, "product_id"), "does not exist")
		}
	}
	return verr.OrNil()
}

// UpdateHeader changes date and invoice. Totals and items are untouched.
func (s *Service) UpdateHeader(ctx context.Context, p shared.Principal, id int64, in HeaderInput) (Purchase, error) {
	if err := p.Require(shared.PermPurchasesChange); err != nil {
		return Purchase{}, err
	}
	if err := validateHeader(&in); err != nil {
		return Purchase{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.LockPurchase(ctx, id)
		if err != nil {
			return err
		}
		cur.Date, cur.Invoice = in.Date, in.Invoice
		return tx.UpdateHeader(ctx, cur)
	})
	if err != nil {
		return Purchase{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a purchase that owns no items.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if err := p.Require(shared.PermPurchasesDelete); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockPurchase(ctx, id); err != nil {
			return err
		}
		has, err := tx.HasItems(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return fmt.Errorf("purchase %d has items: %w", id, shared.ErrReferenced)
		}
		return tx.DeletePurchase(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, p, "purchase.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, p shared.Principal, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditEntry(p, action, "purchase", id, meta)); err != nil {
		s.logger.Warn("audit purchase", slog.String("action", action), slog.Any("error", err))
	}
}
