package shared

// Sales permissions declared for RBAC.
const (
	PermCustomersView   = "customers.view"
	PermCustomersAdd    = "customers.add"
	PermCustomersChange = "customers.change"
	PermCustomersDelete = "customers.delete"

	PermSalesView   = "sales.view"
	PermSalesAdd    = "sales.add"
	PermSalesChange = "sales.change"
	PermSalesDelete = "sales.delete"
)

// SalesScopes lists all permissions related to the sales module.
func SalesScopes() []string {
	return []string{
		PermCustomersView,
		PermCustomersAdd,
		PermCustomersChange,
		PermCustomersDelete,
		PermSalesView,
		PermSalesAdd,
		PermSalesChange,
		PermSalesDelete,
	}
}
