package suppliers

import (
	"time"
)

// Supplier is a vendor. Every supplier owns exactly one SUPPLIER account.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Address   string    `json:"address"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input is the writable part of a supplier.
type Input struct {
	Name    string `json:"name" validate:"required,max=255"`
	Contact string `json:"contact" validate:"max=32"`
	Address string `json:"address" validate:"max=255"`
}

// ListFilter narrows supplier listings.
type ListFilter struct {
	Search string
}
