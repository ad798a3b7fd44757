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

	require.NoError(t, m.Track("payroll:materialize-daily").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("payroll:materialize-daily").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("payroll:materialize-daily", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("payroll:materialize-daily", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("payroll:materialize-daily")))
}

func TestSalaryAllocationsIgnoreNonPositive(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddSalaryAllocations(3)
	m.AddSalaryAllocations(0)
	m.AddSalaryAllocations(-2)
	require.Equal(t, 3.0, testutil.ToFloat64(m.salaries))

	var nilMetrics *Metrics
	nilMetrics.AddSalaryAllocations(1)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
