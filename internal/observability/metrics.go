// Package observability provides Prometheus metrics for the reconciliation
// service. Metrics are registered on the default registry via promauto and
// exposed by the API server on /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service-level instruments.
type Metrics struct {
	// Completed and failed runs
	RunsTotal *prometheus.CounterVec

	// Outcomes written, by classification status
	OutcomesTotal *prometheus.CounterVec

	// End-to-end run duration, fetch through persistence
	RunDuration prometheus.Histogram

	// Records fetched per upstream platform
	RecordsFetched *prometheus.CounterVec
}

// NewMetrics registers and returns the service metrics. Call once per
// process; promauto panics on duplicate registration.
func NewMetrics() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerlink_runs_total",
			Help: "Reconciliation runs by final status",
		}, []string{"status"}), // status: "COMPLETED", "FAILED"

		OutcomesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerlink_outcomes_total",
			Help: "Reconciliation outcomes by classification status",
		}, []string{"status"}),

		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerlink_run_duration_seconds",
			Help:    "Duration of a full reconciliation run",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		RecordsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerlink_records_fetched_total",
			Help: "Records fetched from upstream platforms",
		}, []string{"source"}),
	}
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	if m != nil {
		m.RunsTotal.WithLabelValues(status).Inc()
		m.RunDuration.Observe(d.Seconds())
	}
}

// CountOutcome records one written outcome.
func (m *Metrics) CountOutcome(status string) {
	if m != nil {
		m.OutcomesTotal.WithLabelValues(status).Inc()
	}
}

// CountFetched records records retrieved from a platform.
func (m *Metrics) CountFetched(source string, n int) {
	if m != nil {
		m.RecordsFetched.WithLabelValues(source).Add(float64(n))
	}
}
