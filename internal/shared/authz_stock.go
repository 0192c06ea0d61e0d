package shared

// Catalog, procurement and inventory permissions.
const (
	PermProductsView   = "products.view"
	PermProductsAdd    = "products.add"
	PermProductsChange = "products.change"
	PermProductsDelete = "products.delete"

	PermSuppliersView   = "suppliers.view"
	PermSuppliersAdd    = "suppliers.add"
	PermSuppliersChange = "suppliers.change"
	PermSuppliersDelete = "suppliers.delete"

	PermPurchasesView   = "purchases.view"
	PermPurchasesAdd    = "purchases.add"
	PermPurchasesChange = "purchases.change"
	PermPurchasesDelete = "purchases.delete"

	PermInventoryView   = "inventory.view"
	PermInventoryChange = "inventory.change"
)

// StockScopes lists permissions for products, suppliers, purchases and inventory.
func StockScopes() []string {
	return []string{
		PermProductsView,
		PermProductsAdd,
		PermProductsChange,
		PermProductsDelete,
		PermSuppliersView,
		PermSuppliersAdd,
		PermSuppliersChange,
		PermSuppliersDelete,
		PermPurchasesView,
		PermPurchasesAdd,
		PermPurchasesChange,
		PermPurchasesDelete,
		PermInventoryView,
		PermInventoryChange,
	}
}
