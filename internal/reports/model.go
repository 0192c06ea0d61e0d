package reports

import "github.com/dawa-pos/dawa/internal/shared"

// Totals is a count and sum over one kind of document.
type Totals struct {
	Count int64 `json:"count"`
	Total int64 `json:"total"`
}

// Summary aggregates trading activity over a date window.
type Summary struct {
	From      *shared.Date `json:"from"`
	To        *shared.Date `json:"to"`
	Sales     Totals       `json:"sales"`
	Purchases Totals       `json:"purchases"`
	Expenses  Totals       `json:"expenses"`
	// Net is sales less purchases and expenses.
	Net int64 `json:"net"`
}

// CustomerSales is one row of the sales-by-customer breakdown. Walk-in sales
// have no customer and are reported with a nil CustomerID.
type CustomerSales struct {
	CustomerID   *int64 `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	SaleCount    int64  `json:"sale_count"`
	Total        int64  `json:"total"`
}

// ProductSales is one row of the product movement report.
type ProductSales struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	// Units is quantity multiplied by pack size units.
	Units int64 `json:"units"`
	Total int64 `json:"total"`
}
