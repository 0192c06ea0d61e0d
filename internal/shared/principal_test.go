package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrincipalRequire(t *testing.T) {
	anon := Principal{}
	require.ErrorIs(t, anon.Require(PermSuppliersAdd), ErrUnauthenticated)

	clerk := NewPrincipal(7, false, []string{" Suppliers.View ", "purchases.add", ""})
	require.True(t, clerk.Can(PermSuppliersView))
	require.NoError(t, clerk.Require(PermPurchasesAdd))

	err := clerk.Require(PermPurchasesAdd, PermSuppliersDelete)
	require.ErrorIs(t, err, ErrForbidden)
	require.Contains(t, err.Error(), PermSuppliersDelete)

	admin := NewPrincipal(1, true, nil)
	for _, perm := range AllScopes() {
		require.True(t, admin.Can(perm), perm)
	}
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	verr := &ValidationError{}
	require.NoError(t, verr.OrNil())

	verr.Add("total", "total mismatch")
	verr.Add("total", "ignored")
	verr.Add("items", "at least one item is required")

	err := verr.OrNil()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "total mismatch", verr.Fields["total"])

	var target *ValidationError
	require.True(t, errors.As(err, &target))
	require.Len(t, target.Fields, 2)
	require.Equal(t, "validation failed: items: at least one item is required; total: total mismatch", err.Error())
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalJSON([]byte(`"2024-03-09"`)))
	require.Equal(t, "2024-03-09", d.String())

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `"2024-03-09"`, string(out))

	require.Error(t, d.UnmarshalJSON([]byte(`"09/03/2024"`)))

	from, _ := ParseDate("2024-03-01")
	to, _ := ParseDate("2024-03-31")
	r := DateRange{From: &from, To: &to}
	require.True(t, r.Contains(d))
	outside, _ := ParseDate("2024-04-01")
	require.False(t, r.Contains(outside))
}

func TestCleanName(t *testing.T) {
	require.Equal(t, "Acme Pharma", CleanName("  Acme   Pharma "))
	require.Equal(t, "Café", CleanName("Café"))
}
