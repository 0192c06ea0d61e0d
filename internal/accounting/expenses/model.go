package expenses

import "github.com/dawa-pos/dawa/internal/shared"

// Expense is money paid out of an account. Expenses do not move balances.
type Expense struct {
	ID        int64       `json:"id"`
	AccountID int64       `json:"account_id"`
	Date      shared.Date `json:"date"`
	Details   string      `json:"details"`
	Amount    int64       `json:"amount"`
}
