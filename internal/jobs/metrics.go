package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs and the ledger
// gauges they refresh.
type Metrics struct {
	runs         *prometheus.CounterVec
	failures     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	pool         *prometheus.GaugeVec
	violations   prometheus.Counter
	participants *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// PoolTotals is the snapshot published by SetPool.
type PoolTotals struct {
	Deposits   uint64
	AdminFees  uint64
	ClaimsPaid uint64
	Balance    uint64
}

// SetPool publishes the pool account totals.
func (m *Metrics) SetPool(t PoolTotals) {
	if m == nil {
		return
	}
	m.pool.WithLabelValues("deposits").Set(float64(t.Deposits))
	m.pool.WithLabelValues("admin_fees").Set(float64(t.AdminFees))
	m.pool.WithLabelValues("claims_paid").Set(float64(t.ClaimsPaid))
	m.pool.WithLabelValues("balance").Set(float64(t.Balance))
}

// AddViolation counts a failed conservation check.
func (m *Metrics) AddViolation() {
	if m == nil {
		return
	}
	m.violations.Inc()
}

// SetParticipants publishes the active and lapsed participant counts.
func (m *Metrics) SetParticipants(active, lapsed int) {
	if m == nil {
		return
	}
	m.participants.WithLabelValues("active").Set(float64(active))
	m.participants.WithLabelValues("lapsed").Set(float64(lapsed))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riskpool_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riskpool_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskpool_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	pool := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskpool_pool_amount",
		Help: "Pool account totals in base units, by field.",
	}, []string{"field"})
	violations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "riskpool_pool_conservation_violations_total",
		Help: "Integrity checks that found the pool account out of balance.",
	})
	participants := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskpool_participants",
		Help: "Registered participants by activity state.",
	}, []string{"state"})
	registerer.MustRegister(runs, failures, duration, pool, violations, participants)
	return &Metrics{
		runs:         runs,
		failures:     failures,
		duration:     duration,
		pool:         pool,
		violations:   violations,
		participants: participants,
	}
}
