package products

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/internal/shared"
)

func id(v int64) *int64 { return &v }

func TestReconcilePackSizes(t *testing.T) {
	existing := []PackSize{
		{ID: 1, ProductID: 9, Units: 10, SalePrice: 500},
		{ID: 2, ProductID: 9, Units: 100, SalePrice: 4500},
	}
	desired := []PackSizeForm{
		{ID: id(1), Units: 10, SalePrice: 600},
		{Units: 1, SalePrice: 60},
	}

	t.Run("prune deletes omitted rows", func(t *testing.T) {
		plan, err := ReconcilePackSizes(9, existing, desired, true)
		require.NoError(t, err)
		require.Equal(t, []PackSize{{ProductID: 9, Units: 1, SalePrice: 60}}, plan.Create)
		require.Equal(t, []PackSize{{ID: 1, ProductID: 9, Units: 10, SalePrice: 600}}, plan.Update)
		require.Equal(t, []int64{2}, plan.Delete)
	})

	t.Run("merge keeps omitted rows", func(t *testing.T) {
		plan, err := ReconcilePackSizes(9, existing, desired, false)
		require.NoError(t, err)
		require.Len(t, plan.Create, 1)
		require.Len(t, plan.Update, 1)
		require.Empty(t, plan.Delete)
	})

	t.Run("unchanged rows are not rewritten", func(t *testing.T) {
		plan, err := ReconcilePackSizes(9, existing, []PackSizeForm{{ID: id(1), Units: 10, SalePrice: 500}, {ID: id(2), Units: 100, SalePrice: 4500}}, true)
		require.NoError(t, err)
		require.True(t, plan.Empty())
	})

	t.Run("foreign id is rejected", func(t *testing.T) {
		_, err := ReconcilePackSizes(9, existing, []PackSizeForm{{ID: id(77), Units: 1}}, false)
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "pack_sizes[0].id")
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		_, err := ReconcilePackSizes(9, existing, []PackSizeForm{{ID: id(1), Units: 1}, {ID: id(1), Units: 2}}, false)
		require.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("invalid units and price", func(t *testing.T) {
		_, err := ReconcilePackSizes(9, nil, []PackSizeForm{{Units: 0, SalePrice: -1}}, true)
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "pack_sizes[0].units")
		require.Contains(t, verr.Fields, "pack_sizes[0].sale_price")
	})

	t.Run("pruning everything is rejected", func(t *testing.T) {
		_, err := ReconcilePackSizes(9, existing, nil, true)
		require.ErrorIs(t, err, shared.ErrValidation)
	})
}
