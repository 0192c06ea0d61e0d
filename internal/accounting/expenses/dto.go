package expenses

import "github.com/dawa-pos/dawa/internal/shared"

type CreateExpenseRequest struct {
	AccountID int64       `json:"account_id" validate:"required"`
	Date      shared.Date `json:"date"`
	Details   string      `json:"details" validate:"required,max=255"`
	Amount    int64       `json:"amount" validate:"gte=0"`
}

type UpdateExpenseRequest struct {
	AccountID *int64       `json:"account_id,omitempty"`
	Date      *shared.Date `json:"date,omitempty"`
	Details   *string      `json:"details,omitempty" validate:"omitempty,max=255"`
	Amount    *int64       `json:"amount,omitempty" validate:"omitempty,gte=0"`
}

type ListExpensesRequest struct {
	AccountID *int64
	Date      shared.DateRange
	Search    string
}
