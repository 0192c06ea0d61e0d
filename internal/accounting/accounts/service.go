package accounts

import (
	"context"
	"fmt"

	"github.com/dawa-pos/dawa/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetAccount(ctx context.Context, id int64) (Account, error)
	ListAccounts(ctx context.Context, f ListFilter) ([]Account, error)
	ListEntries(ctx context.Context, accountID int64) ([]Entry, error)
}

// Service exposes account management. Balances only move through Adjust.
type Service struct {
	repo RepositoryPort
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, p shared.Principal, f ListFilter) ([]Account, error) {
	if err := p.Require(shared.PermAccountsView); err != nil {
		return nil, err
	}
	if f.Category != "" && !f.Category.Valid() {
		return nil, shared.NewValidationError("category", "unknown category")
	}
	return s.repo.ListAccounts(ctx, f)
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Account, error) {
	if err := p.Require(shared.PermAccountsView); err != nil {
		return Account{}, err
	}
	return s.repo.GetAccount(ctx, id)
}

// Entries lists the ledger movements of one account.
func (s *Service) Entries(ctx context.Context, p shared.Principal, id int64) ([]Entry, error) {
	if err := p.Require(shared.PermAccountsView); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListEntries(ctx, id)
}

// Create inserts a standalone account. A non-zero opening balance is posted
// through the ledger so entries always sum to the balance.
func (s *Service) Create(ctx context.Context, p shared.Principal, in CreateInput) (Account, error) {
	if err := p.Require(shared.PermAccountsAdd); err != nil {
		return Account{}, err
	}
	in.Name = shared.CleanName(in.Name)
	if err := validateAccount(in.Name, in.Category); err != nil {
		return Account{}, err
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		taken, err := tx.AccountNameTaken(ctx, in.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return shared.NewValidationError("name", "account with this name already exists")
		}
		acc, err := tx.CreateAccount(ctx, Account{Name: in.Name, Category: in.Category})
		if err != nil {
			return err
		}
		balance, err := Adjust(ctx, tx, acc.ID, in.OpeningBalance, Ref{Kind: RefOpening, ID: acc.ID})
		if err != nil {
			return err
		}
		acc.Balance = balance
		created = acc
		return nil
	})
	if err != nil {
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

// Update changes name or category.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, in UpdateInput) (Account, error) {
	if err := p.Require(shared.PermAccountsChange); err != nil {
		return Account{}, err
	}
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			acc.Name = shared.CleanName(*in.Name)
		}
		if in.Category != nil {
			acc.Category = *in.Category
		}
		if err := validateAccount(acc.Name, acc.Category); err != nil {
			return err
		}
		if acc.Owner != nil && acc.Category != CategorySupplier {
			return shared.NewValidationError("category", "supplier accounts must stay in the SUPPLIER category")
		}
		taken, err := tx.AccountNameTaken(ctx, acc.Name, acc.ID)
		if err != nil {
			return err
		}
		if taken {
			return shared.NewValidationError("name", "account with this name already exists")
		}
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		updated = acc
		return nil
	})
	if err != nil {
		return Account{}, fmt.Errorf("update account: %w", err)
	}
	return updated, nil
}

// Delete removes an account that nothing references.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if err := p.Require(shared.PermAccountsDelete); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if acc.Owner != nil {
			return fmt.Errorf("account %d is owned by %s %d: %w", id, acc.Owner.Kind, acc.Owner.ID, shared.ErrReferenced)
		}
		referenced, err := tx.AccountReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("account %d: %w", id, shared.ErrReferenced)
		}
		return tx.DeleteAccount(ctx, id)
	})
}

func validateAccount(name string, category Category) error {
	verr := &shared.ValidationError{}
	if name == "" {
		verr.Add("name", "this field is required")
	}
	if !category.Valid() {
		verr.Add("category", "unknown category")
	}
	return verr.OrNil()
}
