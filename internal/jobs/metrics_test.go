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

	require.NoError(t, m.Track("pallets:reconcile").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("pallets:reconcile").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("pallets:reconcile", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("pallets:reconcile", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("pallets:reconcile")))
}

func TestAddPalletFindingsIgnoresEmpty(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddPalletFindings("negative", 0)
	m.AddPalletFindings("corrected", 3)

	require.Equal(t, 0.0, testutil.ToFloat64(m.findings.WithLabelValues("negative")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.findings.WithLabelValues("corrected")))
}

func TestNilMetricsTracker(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("noop").End(nil))
	m.AddPalletFindings("corrected", 1)
}
