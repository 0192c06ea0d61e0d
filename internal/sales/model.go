package sales

import (
	"time"

	"github.com/dawa-pos/dawa/internal/shared"
)

// Sale is a customer checkout. Total is derived from its items.
type Sale struct {
	ID         int64       `json:"id"`
	CustomerID *int64      `json:"customer_id"`
	AccountID  *int64      `json:"account_id"`
	Date       shared.Date `json:"date"`
	CreatedAt  time.Time   `json:"created_at"`
	Items      []Item      `json:"items"`
	Total      int64       `json:"total"`
}

// Item is one sold pack size. SalePrice is captured from the pack size when
// the sale is recorded and does not follow later price changes.
type Item struct {
	ID         int64 `json:"id"`
	SaleID     int64 `json:"sale_id"`
	PackSizeID int64 `json:"pack_size_id"`
	SalePrice  int64 `json:"sale_price"`
	Quantity   int64 `json:"quantity"`
	Total      int64 `json:"total"`
}

// ListFilter narrows sale listings.
type ListFilter struct {
	CustomerID *int64
	Date       shared.DateRange
}
