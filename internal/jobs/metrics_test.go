package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	require.NoError(t, m.Track("auth:sessions:purge").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("auth:sessions:purge").End(boom), boom)
	m.AddAffected("auth:sessions:purge", 3)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("auth:sessions:purge", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("auth:sessions:purge", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("auth:sessions:purge")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.affected.WithLabelValues("auth:sessions:purge")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("x").End(nil))
	m.AddAffected("x", 1)
}
