package expenses

import (
	"context"
	"strings"

	"github.com/dawa-pos/dawa/internal/platform/httpx"
	"github.com/dawa-pos/dawa/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, p shared.Principal, req ListExpensesRequest) ([]Expense, error) {
	if err := p.Require(shared.PermExpensesView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Expense, error) {
	if err := p.Require(shared.PermExpensesView); err != nil {
		return Expense{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateExpenseRequest) (Expense, error) {
	if err := p.Require(shared.PermExpensesAdd); err != nil {
		return Expense{}, err
	}
	req.Details = strings.TrimSpace(req.Details)
	if err := httpx.Validate(req); err != nil {
		return Expense{}, err
	}
	e := Expense{AccountID: req.AccountID, Date: req.Date, Details: req.Details, Amount: req.Amount}
	if err := s.check(ctx, e); err != nil {
		return Expense{}, err
	}
	return s.repo.Create(ctx, e)
}

// Update applies the fields present in req.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, req UpdateExpenseRequest) (Expense, error) {
	if err := p.Require(shared.PermExpensesChange); err != nil {
		return Expense{}, err
	}
	if err := httpx.Validate(req); err != nil {
		return Expense{}, err
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if req.AccountID != nil {
		e.AccountID = *req.AccountID
	}
	if req.Date != nil {
		e.Date = *req.Date
	}
	if req.Details != nil {
		e.Details = strings.TrimSpace(*req.Details)
	}
	if req.Amount != nil {
		e.Amount = *req.Amount
	}
	if err := s.check(ctx, e); err != nil {
		return Expense{}, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if err := p.Require(shared.PermExpensesDelete); err != nil {
		return err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) check(ctx context.Context, e Expense) error {
	verr := &shared.ValidationError{}
	if e.Date.IsZero() {
		verr.Add("date", "this field is required")
	}
	if e.Details == "" {
		verr.Add("details", "this field may not be blank")
	}
	if e.Amount < 0 {
		verr.Add("amount", "must be greater than or equal to 0")
	}
	if err := verr.OrNil(); err != nil {
		return err
	}
	ok, err := s.repo.AccountExists(ctx, e.AccountID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ReferenceNotFound("account_id")
	}
	return nil
}
