package procurement

import (
	"github.com/dawa-pos/dawa/internal/inventory"
	"github.com/dawa-pos/dawa/internal/shared"
)

// Purchase is a supplier invoice received into stock.
type Purchase struct {
	ID         int64            `json:"id"`
	SupplierID int64            `json:"supplier_id"`
	Date       shared.Date      `json:"date"`
	Invoice    string           `json:"invoice"`
	Total      int64            `json:"total"`
	Items      []inventory.Item `json:"items"`
}

// CreateInput describes a purchase with its stock lines.
type CreateInput struct {
	SupplierID int64            `json:"supplier_id" validate:"required"`
	Date       shared.Date      `json:"date"`
	Invoice    string           `json:"invoice" validate:"required,max=30"`
	Total      int64            `json:"total" validate:"gte=0"`
	Items      []inventory.Form `json:"items" validate:"required,min=1,dive"`

	// IdempotencyKey is taken from the request header, not the body.
	IdempotencyKey string `json:"-"`
}

// HeaderInput holds the purchase fields that may change after creation.
type HeaderInput struct {
	Date    shared.Date `json:"date"`
	Invoice string      `json:"invoice" validate:"required,max=30"`
}

// ListFilter narrows purchase listings.
type ListFilter struct {
	SupplierID *int64
	Date       shared.DateRange
	Search     string
}

// MsgTotalMismatch is reported on the total field when the declared invoice
// total differs from the sum of its lines.
const MsgTotalMismatch = "The total of the invoice does not match the total of the items"

// itemsTotal sums pack_cost × quantity over the lines.
func itemsTotal(items []inventory.Form) (int64, error) {
	var sum int64
	for i, f := range items {
		line, ok := shared.MulAmounts(f.PackCost, f.Quantity)
		if !ok {
			return 0, shared.NewValidationError(lineField(i, "quantity"), "line total is too large")
		}
		if sum, ok = shared.AddAmounts(sum, line); !ok {
			return 0, shared.NewValidationError("total", "invoice total is too large")
		}
	}
	return sum, nil
}
