package products

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dawa-pos/dawa/internal/platform/httpx"
	"github.com/dawa-pos/dawa/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Product, error)
	GetPackSize(ctx context.Context, id int64) (PackSize, error)
	List(ctx context.Context, f ListFilter) ([]Product, error)
}

// Service exposes catalog operations.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, p shared.Principal, f ListFilter) ([]Product, error) {
	if err := p.Require(shared.PermProductsView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Product, error) {
	if err := p.Require(shared.PermProductsView); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// PackSize resolves a pack size for sales and purchase lookups.
func (s *Service) PackSize(ctx context.Context, p shared.Principal, id int64) (PackSize, error) {
	if err := p.Require(shared.PermProductsView); err != nil {
		return PackSize{}, err
	}
	return s.repo.GetPackSize(ctx, id)
}

// Create stores a product and its pack sizes atomically.
func (s *Service) Create(ctx context.Context, p shared.Principal, form ProductForm) (Product, error) {
	if err := p.Require(shared.PermProductsAdd); err != nil {
		return Product{}, err
	}
	form = form.normalize()
	if err := httpx.Validate(form); err != nil {
		return Product{}, err
	}
	for i, ps := range form.PackSizes {
		if ps.ID != nil {
			return Product{}, shared.NewValidationError(fmt.Sprintf("pack_sizes[%d].id", i), "must be omitted for a new product")
		}
	}
	var created Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := ensureNameFree(ctx, tx, form.Name, 0); err != nil {
			return err
		}
		prod, err := tx.InsertProduct(ctx, Product{Name: form.Name, GenericName: form.GenericName})
		if err != nil {
			return err
		}
		plan, err := ReconcilePackSizes(prod.ID, nil, form.PackSizes, true)
		if err != nil {
			return err
		}
		if err := apply(ctx, tx, plan); err != nil {
			return err
		}
		created, err = tx.GetProduct(ctx, prod.ID)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.logger.Info("product created", slog.Int64("product_id", created.ID), slog.Int("pack_sizes", len(created.PackSizes)))
	return created, nil
}

// Replace applies a full representation. Pack sizes left out are deleted.
func (s *Service) Replace(ctx context.Context, p shared.Principal, id int64, form ProductForm) (Product, error) {
	if err := p.Require(shared.PermProductsChange); err != nil {
		return Product{}, err
	}
	form = form.normalize()
	if err := httpx.Validate(form); err != nil {
		return Product{}, err
	}
	return s.update(ctx, id, &form.Name, &form.GenericName, form.PackSizes, true)
}

// Patch applies a partial representation. Pack sizes left out are kept.
func (s *Service) Patch(ctx context.Context, p shared.Principal, id int64, patch ProductPatch) (Product, error) {
	if err := p.Require(shared.PermProductsChange); err != nil {
		return Product{}, err
	}
	patch = patch.normalize()
	if err := patch.validate(); err != nil {
		return Product{}, err
	}
	return s.update(ctx, id, patch.Name, patch.GenericName, patch.PackSizes, false)
}

func (s *Service) update(ctx context.Context, id int64, name, generic *string, packs []PackSizeForm, prune bool) (Product, error) {
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cur, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if name != nil && *name != cur.Name {
			if err := ensureNameFree(ctx, tx, *name, id); err != nil {
				return err
			}
			cur.Name = *name
		}
		if generic != nil {
			cur.GenericName = *generic
		}
		if err := tx.UpdateProduct(ctx, cur); err != nil {
			return err
		}
		if prune || len(packs) > 0 {
			plan, err := ReconcilePackSizes(id, cur.PackSizes, packs, prune)
			if err != nil {
				return err
			}
			if err := apply(ctx, tx, plan); err != nil {
				return err
			}
		}
		updated, err = tx.GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	return updated, nil
}

// Delete removes a product that no inventory or sale refers to.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if err := p.Require(shared.PermProductsDelete); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetProduct(ctx, id); err != nil {
			return err
		}
		referenced, err := tx.ProductReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("product %d: %w", id, shared.ErrReferenced)
		}
		return tx.DeleteProduct(ctx, id)
	})
}

func ensureNameFree(ctx context.Context, tx TxRepository, name string, excludeID int64) error {
	taken, err := tx.NameTaken(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return shared.NewValidationError("name", "product with this name already exists")
	}
	return nil
}

// apply runs deletes first so a pack size can be replaced within one request.
func apply(ctx context.Context, tx TxRepository, plan Plan) error {
	for _, id := range plan.Delete {
		referenced, err := tx.PackSizeReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("pack size %d is used by sales: %w", id, shared.ErrReferenced)
		}
		if err := tx.DeletePackSize(ctx, id); err != nil {
			return err
		}
	}
	for _, ps := range plan.Update {
		if err := tx.UpdatePackSize(ctx, ps); err != nil {
			return err
		}
	}
	for _, ps := range plan.Create {
		if _, err := tx.InsertPackSize(ctx, ps); err != nil {
			return err
		}
	}
	return nil
}
