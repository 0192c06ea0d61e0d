package sales

import "github.com/dawa-pos/dawa/internal/shared"

// CreateSaleRequest is the payload for recording a sale.
type CreateSaleRequest struct {
	CustomerID *int64        `json:"customer_id"`
	AccountID  *int64        `json:"account_id"`
	Date       shared.Date   `json:"date"`
	Items      []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ItemRequest names a pack size and how many packs were sold.
type ItemRequest struct {
	PackSizeID int64 `json:"pack_size_id" validate:"required"`
	Quantity   int64 `json:"quantity" validate:"gt=0"`
}
