package accounts

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dawa-pos/dawa/internal/shared"
)

// Category classifies an account by counterparty type.
type Category string

const (
	CategorySupplier    Category = "SUPPLIER"
	CategoryCustomer    Category = "CUSTOMER"
	CategoryCash        Category = "CASH"
	CategoryBank        Category = "BANK"
	CategoryMobileMoney Category = "MOBILE_MONEY"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySupplier, CategoryCustomer, CategoryCash, CategoryBank, CategoryMobileMoney:
		return true
	}
	return false
}

// Settlement reports whether money can be received into accounts of this category.
func (c Category) Settlement() bool {
	return c == CategoryCash || c == CategoryBank || c == CategoryMobileMoney
}

// UnmarshalJSON accepts the display spelling "MOBILE MONEY" as well as
// lower-case input.
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = ParseCategory(raw)
	return nil
}

// ParseCategory normalises free-form input into a Category. The result may be invalid.
func ParseCategory(raw string) Category {
	return Category(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), " ", "_"))
}

// OwnerKind discriminates the entity owning an account.
type OwnerKind string

const (
	OwnerSupplier OwnerKind = "supplier"
	OwnerCustomer OwnerKind = "customer"
)

// Owner is the typed back reference from an account to the party that owns it.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   int64     `json:"id"`
}

// Account is a named balance bucket. Balance is in minor currency units and
// may be negative.
type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Balance   int64     `json:"balance"`
	Owner     *Owner    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RefKind names the operation behind a ledger entry.
type RefKind string

const (
	RefOpening          RefKind = "opening"
	RefPurchase         RefKind = "purchase"
	RefPurchaseRevision RefKind = "purchase_revision"
	RefSale             RefKind = "sale"
)

// Ref points a ledger entry at the record that caused it.
type Ref struct {
	Kind RefKind
	ID   int64
}

// Entry is one append-only balance movement.
type Entry struct {
	ID           int64     `json:"id"`
	AccountID    int64     `json:"account_id"`
	Delta        int64     `json:"delta"`
	BalanceAfter int64     `json:"balance_after"`
	RefKind      RefKind   `json:"ref_kind"`
	RefID        int64     `json:"ref_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListFilter narrows account listings.
type ListFilter struct {
	Search   string
	Name     string
	Category Category
	Created  shared.DateRange
}

// CreateInput describes a standalone account.
type CreateInput struct {
	Name           string   `json:"name" validate:"required,max=255"`
	Category       Category `json:"category" validate:"required"`
	OpeningBalance int64    `json:"opening_balance"`
}

// UpdateInput carries the mutable account attributes. Balance is not among them.
type UpdateInput struct {
	Name     *string   `json:"name,omitempty" validate:"omitempty,max=255"`
	Category *Category `json:"category,omitempty"`
}
