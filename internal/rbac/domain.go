package rbac

// Access is the raw authorization state of a user.
type Access struct {
	UserID      int64
	Active      bool
	Superuser   bool
	Permissions []string
}

// Permission describes an entry of the permission catalog.
type Permission struct {
	Name     string `json:"name"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}
