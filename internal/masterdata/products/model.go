package products

import "time"

// PackSize is a sellable bundle of a product with its own list price.
type PackSize struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"product_id"`
	Units     int64 `json:"units"`
	SalePrice int64 `json:"sale_price"`
}

// Product owns one or more pack sizes.
type Product struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	GenericName string     `json:"generic_name"`
	PackSizes   []PackSize `json:"pack_sizes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ListFilter narrows product listings. Search matches name or generic name.
type ListFilter struct {
	Search string
}
