package migrations

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemaCoversEveryTable(t *testing.T) {
	all, err := All()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	require.Equal(t, "0001_init", all[0].Version)

	tables := []string{
		"accounts", "ledger_entries", "suppliers", "customers", "products", "pack_sizes",
		"purchases", "inventory", "sales", "sale_items", "expenses", "users", "groups",
		"group_permissions", "user_groups", "idempotency_keys", "audit_logs",
	}
	for _, table := range tables {
		require.Contains(t, all[0].SQL, "CREATE TABLE "+table+" (", table)
	}
}

func TestLoadSortsAndPendingSkipsApplied(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql": {Data: []byte("SELECT 2;")},
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"README.md":  {Data: []byte("ignored")},
	}
	all, err := load(fsys)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "0001_a", all[0].Version)
	require.True(t, strings.HasPrefix(all[1].SQL, "SELECT 2"))

	pending := Pending(all, map[string]bool{"0001_a": true})
	require.Len(t, pending, 1)
	require.Equal(t, "0002_b", pending[0].Version)
	require.Empty(t, Pending(all, map[string]bool{"0001_a": true, "0002_b": true}))
}
