package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("ledger:reconcile").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("ledger:reconcile").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:reconcile", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:reconcile", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("ledger:reconcile")))
}

func TestGaugesAndNilSafety(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetLedgerDrift(2)
	m.SetExpiringStock(7)
	m.AddPrunedKeys(5)
	m.AddPrunedKeys(-1)
	require.Equal(t, 2.0, testutil.ToFloat64(m.drift))
	require.Equal(t, 7.0, testutil.ToFloat64(m.expiring))
	require.Equal(t, 5.0, testutil.ToFloat64(m.pruned))

	var none *Metrics
	none.SetLedgerDrift(1)
	require.NoError(t, none.Track("x").End(nil))
}
