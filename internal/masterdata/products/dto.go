package products

// PackSizeForm is one desired pack size. A nil ID asks for a new row.
type PackSizeForm struct {
	ID        *int64 `json:"id,omitempty"`
	Units     int64  `json:"units" validate:"gt=0"`
	SalePrice int64  `json:"sale_price" validate:"gte=0"`
}

// ProductForm is the full representation used by create and PUT.
type ProductForm struct {
	Name        string         `json:"name" validate:"required,max=255"`
	GenericName string         `json:"generic_name" validate:"required,max=255"`
	PackSizes   []PackSizeForm `json:"pack_sizes" validate:"required,min=1,dive"`
}

// ProductPatch is the partial representation used by PATCH.
type ProductPatch struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,max=255"`
	GenericName *string        `json:"generic_name,omitempty" validate:"omitempty,max=255"`
	PackSizes   []PackSizeForm `json:"pack_sizes,omitempty" validate:"omitempty,dive"`
}
