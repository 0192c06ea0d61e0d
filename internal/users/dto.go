package users

type CreateUserRequest struct {
	Email       string  `json:"email" validate:"required,email,max=254"`
	FirstName   string  `json:"first_name" validate:"max=150"`
	LastName    string  `json:"last_name" validate:"max=150"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
	Groups      []int64 `json:"groups" validate:"dive,gt=0"`
}

type UpdateUserRequest struct {
	Email       *string  `json:"email,omitempty" validate:"omitempty,email,max=254"`
	FirstName   *string  `json:"first_name,omitempty" validate:"omitempty,max=150"`
	LastName    *string  `json:"last_name,omitempty" validate:"omitempty,max=150"`
	Password    *string  `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	IsActive    *bool    `json:"is_active,omitempty"`
	IsSuperuser *bool    `json:"is_superuser,omitempty"`
	Groups      *[]int64 `json:"groups,omitempty" validate:"omitempty,dive,gt=0"`
}

type ListUsersRequest struct {
	Search   string
	IsActive *bool
	GroupID  *int64
}
