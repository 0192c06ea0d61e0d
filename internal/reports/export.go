package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

func formatDate(s Summary) (string, string) {
	var from, to string
	if s.From != nil {
		from = s.From.String()
	}
	if s.To != nil {
		to = s.To.String()
	}
	return from, to
}

// WriteSummaryCSV writes the summary as metric/value rows.
func WriteSummaryCSV(w io.Writer, s Summary) error {
	writer := csv.NewWriter(w)
	from, to := formatDate(s)
	records := [][]string{
		{"Metric", "Value"},
		{"From", from},
		{"To", to},
		{"Sales Count", strconv.FormatInt(s.Sales.Count, 10)},
		{"Sales Total", strconv.FormatInt(s.Sales.Total, 10)},
		{"Purchases Count", strconv.FormatInt(s.Purchases.Count, 10)},
		{"Purchases Total", strconv.FormatInt(s.Purchases.Total, 10)},
		{"Expenses Count", strconv.FormatInt(s.Expenses.Count, 10)},
		{"Expenses Total", strconv.FormatInt(s.Expenses.Total, 10)},
		{"Net", strconv.FormatInt(s.Net, 10)},
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return writer.Error()
}

func customerLabel(row CustomerSales) string {
	if row.CustomerID == nil {
		return "Walk-in"
	}
	return row.CustomerName
}

// WriteSalesByCustomerCSV emits one row per customer.
func WriteSalesByCustomerCSV(w io.Writer, rows []CustomerSales) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Customer", "Sales", "Total"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			customerLabel(row),
			strconv.FormatInt(row.SaleCount, 10),
			strconv.FormatInt(row.Total, 10),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSalesByCustomerXLSX renders the breakdown as a single-sheet workbook.
func WriteSalesByCustomerXLSX(w io.Writer, rows []CustomerSales) error {
	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"Customer", "Sales", "Total"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for i, row := range rows {
		line := i + 2
		values := []any{customerLabel(row), row.SaleCount, row.Total}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, line)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}
	return f.Write(w)
}
