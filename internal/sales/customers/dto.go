package customers

type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Contact string `json:"contact" validate:"max=32"`
	Address string `json:"address" validate:"max=255"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Contact *string `json:"contact,omitempty" validate:"omitempty,max=32"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

type ListCustomersRequest struct {
	Name   string `json:"name,omitempty"`
	Search string `json:"search,omitempty"`
}
