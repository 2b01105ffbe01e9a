package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("pool:integrity").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("pool:integrity").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("pool:integrity", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("pool:integrity", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("pool:integrity")))
}

func TestGauges(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetPool(PoolTotals{Deposits: 1000, AdminFees: 50, ClaimsPaid: 200, Balance: 750})
	m.SetParticipants(3, 1)
	m.AddViolation()

	assert.Equal(t, 750.0, testutil.ToFloat64(m.pool.WithLabelValues("balance")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.pool.WithLabelValues("admin_fees")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.participants.WithLabelValues("active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Track("x").End(nil))
	m.SetPool(PoolTotals{})
	m.SetParticipants(0, 0)
	m.AddViolation()
}
