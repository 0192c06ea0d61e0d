package shared

// Finance permissions declared for RBAC.
const (
	PermAccountsView   = "accounts.view"
	PermAccountsAdd    = "accounts.add"
	PermAccountsChange = "accounts.change"
	PermAccountsDelete = "accounts.delete"

	PermExpensesView   = "expenses.view"
	PermExpensesAdd    = "expenses.add"
	PermExpensesChange = "expenses.change"
	PermExpensesDelete = "expenses.delete"

	PermReportsView = "reports.view"
)

// FinanceScopes lists all permissions related to the ledger, expenses and reports.
func FinanceScopes() []string {
	return []string{
		PermAccountsView,
		PermAccountsAdd,
		PermAccountsChange,
		PermAccountsDelete,
		PermExpensesView,
		PermExpensesAdd,
		PermExpensesChange,
		PermExpensesDelete,
		PermReportsView,
	}
}
