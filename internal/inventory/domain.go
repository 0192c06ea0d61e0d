package inventory

import (
	"fmt"

	"github.com/dawa-pos/dawa/internal/shared"
)

// Item is one stocked line of a purchase.
type Item struct {
	ID             int64       `json:"id"`
	PurchaseID     int64       `json:"purchase_id"`
	ProductID      int64       `json:"product_id"`
	BatchNumber    string      `json:"batch_number"`
	ExpiryDate     shared.Date `json:"expiry_date"`
	PackSize       int64       `json:"pack_size"`
	PackCost       int64       `json:"pack_cost"`
	Quantity       int64       `json:"quantity"`
	AvailableUnits int64       `json:"available_units"`
}

// Total is pack_cost × quantity.
func (it Item) Total() (int64, error) {
	total, ok := shared.MulAmounts(it.PackCost, it.Quantity)
	if !ok {
		return 0, fmt.Errorf("%w: line total overflows", shared.ErrValidation)
	}
	return total, nil
}

// Derive recomputes available_units from pack size and quantity.
func (it *Item) Derive() error {
	units, ok := shared.MulAmounts(it.PackSize, it.Quantity)
	if !ok {
		return fmt.Errorf("%w: available units overflow", shared.ErrValidation)
	}
	it.AvailableUnits = units
	return nil
}

// Form carries the writable fields of an item, both for purchase lines and
// for later corrections.
type Form struct {
	ProductID   int64       `json:"product_id" validate:"required"`
	BatchNumber string      `json:"batch_number" validate:"max=20"`
	ExpiryDate  shared.Date `json:"expiry_date"`
	PackSize    int64       `json:"pack_size" validate:"gt=0"`
	PackCost    int64       `json:"pack_cost" validate:"gte=0"`
	Quantity    int64       `json:"quantity" validate:"gt=0"`
}

// Item builds an unsaved item for purchaseID with derived units.
func (f Form) Item(purchaseID int64) (Item, error) {
	it := Item{
		PurchaseID:  purchaseID,
		ProductID:   f.ProductID,
		BatchNumber: f.BatchNumber,
		ExpiryDate:  f.ExpiryDate,
		PackSize:    f.PackSize,
		PackCost:    f.PackCost,
		Quantity:    f.Quantity,
	}
	return it, it.Derive()
}

// FormOf returns the writable view of an item.
func FormOf(it Item) Form {
	return Form{
		ProductID:   it.ProductID,
		BatchNumber: it.BatchNumber,
		ExpiryDate:  it.ExpiryDate,
		PackSize:    it.PackSize,
		PackCost:    it.PackCost,
		Quantity:    it.Quantity,
	}
}

// ListFilter narrows inventory listings.
type ListFilter struct {
	ProductID      *int64
	PurchaseID     *int64
	BatchNumber    string
	ExpiringBefore *shared.Date
}

// PurchaseHead is the part of a purchase an item correction rewrites.
type PurchaseHead struct {
	ID                int64
	Total             int64
	SupplierAccountID int64
}
