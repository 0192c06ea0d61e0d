package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dawa-pos/dawa/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, p shared.Principal, req ListCustomersRequest) ([]Customer, error) {
	if err := p.Require(shared.PermCustomersView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (*Customer, error) {
	if err := p.Require(shared.PermCustomersView); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateCustomerRequest) (*Customer, error) {
	if err := p.Require(shared.PermCustomersAdd); err != nil {
		return nil, err
	}
	contact, err := shared.NormalizePhone(req.Contact)
	if err != nil {
		return nil, err
	}
	customer := Customer{
		Name:    shared.CleanName(req.Name),
		Contact: contact,
		Address: strings.TrimSpace(req.Address),
	}
	if customer.Name == "" {
		return nil, shared.NewValidationError("name", "this field may not be blank")
	}

	var created Customer
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := ensureNameFree(ctx, repo, customer.Name, 0); err != nil {
			return err
		}
		var err error
		created, err = repo.Create(ctx, customer)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &created, nil
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, req UpdateCustomerRequest) (*Customer, error) {
	if err := p.Require(shared.PermCustomersChange); err != nil {
		return nil, err
	}
	var updated *Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		customer, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			customer.Name = shared.CleanName(*req.Name)
			if customer.Name == "" {
				return shared.NewValidationError("name", "this field may not be blank")
			}
			if err := ensureNameFree(ctx, repo, customer.Name, id); err != nil {
				return err
			}
		}
		if req.Contact != nil {
			contact, err := shared.NormalizePhone(*req.Contact)
			if err != nil {
				return err
			}
			customer.Contact = contact
		}
		if req.Address != nil {
			customer.Address = strings.TrimSpace(*req.Address)
		}
		if err := repo.Update(ctx, *customer); err != nil {
			return err
		}
		updated = customer
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

// Delete removes a customer no sale references.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if err := p.Require(shared.PermCustomersDelete); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		hasSales, err := repo.HasSales(ctx, id)
		if err != nil {
			return err
		}
		if hasSales {
			return fmt.Errorf("customer %d has sales: %w", id, shared.ErrReferenced)
		}
		return repo.Delete(ctx, id)
	})
}

func ensureNameFree(ctx context.Context, repo Repository, name string, selfID int64) error {
	existing, err := repo.GetByName(ctx, name)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("check existing customer: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return shared.NewValidationError("name", "customer with this name already exists")
	}
	return nil
}
