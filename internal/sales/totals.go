package sales

import "github.com/dawa-pos/dawa/internal/shared"

// lineTotal returns quantity × price, or false on overflow.
func lineTotal(quantity, price int64) (int64, bool) {
	return shared.MulAmounts(quantity, price)
}

// fillTotals sets each item total and the sale total.
func fillTotals(s *Sale) bool {
	var sum int64
	for i := range s.Items {
		t, ok := lineTotal(s.Items[i].Quantity, s.Items[i].SalePrice)
		if !ok {
			return false
		}
		s.Items[i].Total = t
		if sum, ok = shared.AddAmounts(sum, t); !ok {
			return false
		}
	}
	s.Total = sum
	return true
}
