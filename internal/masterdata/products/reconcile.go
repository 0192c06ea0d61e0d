package products

import (
	"fmt"

	"github.com/dawa-pos/dawa/internal/shared"
)

// Plan is the set of writes that turns the stored pack sizes into the desired ones.
type Plan struct {
	Create []PackSize
	Update []PackSize
	Delete []int64
}

// Empty reports whether the plan has no writes.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// ReconcilePackSizes diffs desired against existing by id. Entries with an id
// update the matching row and must belong to the product; entries without an
// id are created. When prune is set, stored rows missing from desired are
// deleted; otherwise they are left untouched.
func ReconcilePackSizes(productID int64, existing []PackSize, desired []PackSizeForm, prune bool) (Plan, error) {
	byID := make(map[int64]PackSize, len(existing))
	for _, ps := range existing {
		byID[ps.ID] = ps
	}
	var plan Plan
	verr := &shared.ValidationError{}
	seen := make(map[int64]struct{}, len(desired))
	for i, d := range desired {
		field := fmt.Sprintf("pack_sizes[%d]", i)
		if d.Units <= 0 {
			verr.Add(field+".units", "must be greater than 0")
		}
		if d.SalePrice < 0 {
			verr.Add(field+".sale_price", "must be greater than or equal to 0")
		}
		if d.ID == nil {
			plan.Create = append(plan.Create, PackSize{ProductID: productID, Units: d.Units, SalePrice: d.SalePrice})
			continue
		}
		cur, ok := byID[*d.ID]
		if !ok {
			verr.Add(field+".id", "pack size does not belong to this product")
			continue
		}
		if _, dup := seen[*d.ID]; dup {
			verr.Add(field+".id", "pack size listed more than once")
			continue
		}
		seen[*d.ID] = struct{}{}
		if cur.Units != d.Units || cur.SalePrice != d.SalePrice {
			cur.Units, cur.SalePrice = d.Units, d.SalePrice
			plan.Update = append(plan.Update, cur)
		}
	}
	if prune {
		for _, ps := range existing {
			if _, keep := seen[ps.ID]; !keep {
				plan.Delete = append(plan.Delete, ps.ID)
			}
		}
	}
	if err := verr.OrNil(); err != nil {
		return Plan{}, err
	}
	if len(existing)+len(plan.Create)-len(plan.Delete) < 1 {
		return Plan{}, shared.NewValidationError("pack_sizes", "a product needs at least one pack size")
	}
	return plan, nil
}
