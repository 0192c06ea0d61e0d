package suppliers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Supplier, error)
	List(ctx context.Context, f ListFilter) ([]Supplier, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, p shared.Principal, f ListFilter) ([]Supplier, error) {
	if err := p.Require(shared.PermSuppliersView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Supplier, error) {
	if err := p.Require(shared.PermSuppliersView); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, id)
}

// Provision creates a supplier together with its SUPPLIER account in one
// transaction. Any failure leaves neither row behind.
func (s *Service) Provision(ctx context.Context, p shared.Principal, in Input) (Supplier, error) {
	if err := p.Require(shared.PermSuppliersAdd); err != nil {
		return Supplier{}, err
	}
	in = normalize(in)
	if err := validate(in); err != nil {
		return Supplier{}, err
	}
	var created Supplier
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		taken, err := tx.NameTaken(ctx, in.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return shared.NewValidationError("name", "supplier with this name already exists")
		}
		accountTaken, err := tx.AccountNameTaken(ctx, in.Name, 0)
		if err != nil {
			return err
		}
		if accountTaken {
			return shared.NewValidationError("name", "an account with this name already exists")
		}
		acc, err := tx.CreateAccount(ctx, accounts.Account{Name: in.Name, Category: accounts.CategorySupplier})
		if err != nil {
			return fmt.Errorf("create supplier account: %w", err)
		}
		sup, err := tx.Insert(ctx, Supplier{Name: in.Name, Contact: in.Contact, Address: in.Address, AccountID: acc.ID})
		if err != nil {
			return fmt.Errorf("insert supplier: %w", err)
		}
		created = sup
		return nil
	})
	if err != nil {
		return Supplier{}, err
	}
	s.record(ctx, p, "supplier.provision", created.ID, map[string]any{"account_id": created.AccountID})
	return created, nil
}

// Update changes supplier details. The owned account is not touched.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, in Input) (Supplier, error) {
	if err := p.Require(shared.PermSuppliersChange); err != nil {
		return Supplier{}, err
	}
	in = normalize(in)
	if err := validate(in); err != nil {
		return Supplier{}, err
	}
	var updated Supplier
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sup, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		taken, err := tx.NameTaken(ctx, in.Name, id)
		if err != nil {
			return err
		}
		if taken {
			return shared.NewValidationError("name", "supplier with this name already exists")
		}
		sup.Name, sup.Contact, sup.Address = in.Name, in.Contact, in.Address
		if err := tx.Update(ctx, sup); err != nil {
			return err
		}
		updated = sup
		return nil
	})
	if err != nil {
		return Supplier{}, err
	}
	return updated, nil
}

// Delete removes a supplier and its account. Suppliers with purchases are protected.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if err := p.Require(shared.PermSuppliersDelete); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sup, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		hasPurchases, err := tx.HasPurchases(ctx, id)
		if err != nil {
			return err
		}
		if hasPurchases {
			return fmt.Errorf("supplier %d has purchases: %w", id, shared.ErrReferenced)
		}
		referenced, err := tx.AccountReferenced(ctx, sup.AccountID)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("supplier %d account %d: %w", id, sup.AccountID, shared.ErrReferenced)
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return tx.DeleteAccount(ctx, sup.AccountID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, p, "supplier.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, p shared.Principal, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditEntry(p, action, "supplier", id, meta)); err != nil {
		s.logger.Warn("audit supplier", slog.String("action", action), slog.Any("error", err))
	}
}
