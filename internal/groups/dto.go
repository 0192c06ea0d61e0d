package groups

type CreateGroupRequest struct {
	Name        string   `json:"name" validate:"required,max=150"`
	Permissions []string `json:"permissions"`
}

type UpdateGroupRequest struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,max=150"`
	Permissions *[]string `json:"permissions,omitempty"`
}
