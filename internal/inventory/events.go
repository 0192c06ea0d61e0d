package inventory

import "github.com/dawa-pos/dawa/internal/shared"

// ExpiryNotice reports stock still on hand past or near its expiry date.
type ExpiryNotice struct {
	ItemID         int64
	ProductID      int64
	BatchNumber    string
	ExpiryDate     shared.Date
	AvailableUnits int64
}

// Notices converts items into expiry notices.
func Notices(items []Item) []ExpiryNotice {
	out := make([]ExpiryNotice, 0, len(items))
	for _, it := range items {
		out = append(out, ExpiryNotice{
			ItemID:         it.ID,
			ProductID:      it.ProductID,
			BatchNumber:    it.BatchNumber,
			ExpiryDate:     it.ExpiryDate,
			AvailableUnits: it.AvailableUnits,
		})
	}
	return out
}
