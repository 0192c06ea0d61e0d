package shared

// Identity and operations permissions.
const (
	PermUsersView   = "users.view"
	PermUsersAdd    = "users.add"
	PermUsersChange = "users.change"
	PermUsersDelete = "users.delete"

	PermGroupsView   = "groups.view"
	PermGroupsAdd    = "groups.add"
	PermGroupsChange = "groups.change"
	PermGroupsDelete = "groups.delete"

	PermJobsRun = "jobs.run"
)

// CoreScopes lists all permissions related to identity management.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersAdd,
		PermUsersChange,
		PermUsersDelete,
		PermGroupsView,
		PermGroupsAdd,
		PermGroupsChange,
		PermGroupsDelete,
		PermJobsRun,
	}
}

// AllScopes returns every permission known to the system.
func AllScopes() []string {
	var all []string
	all = append(all, CoreScopes()...)
	all = append(all, FinanceScopes()...)
	all = append(all, StockScopes()...)
	all = append(all, SalesScopes()...)
	return all
}
