package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Authorization metrics
	AuthzDecisions *prometheus.CounterVec
	AuthzLatency   prometheus.Histogram

	// Scheduling metrics
	SchedulingOutcomes *prometheus.CounterVec
	BookingLatency     prometheus.Histogram

	// Decision log metrics
	AuditRecordsWritten prometheus.Counter
	AuditRecordsDropped prometheus.Counter

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		AuthzDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_decisions_total",
			Help:      "Total number of authorization decisions by outcome",
		}, []string{"outcome", "resource_type"}),
		AuthzLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "authz_evaluation_duration_seconds",
			Help:      "Time spent evaluating authorization requests",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05},
		}),
		SchedulingOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduling_outcomes_total",
			Help:      "Total number of scheduling operations by outcome",
		}, []string{"operation", "outcome"}),
		BookingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_duration_seconds",
			Help:      "Time spent inside the per-doctor booking critical section",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		AuditRecordsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_written_total",
			Help:      "Total number of decision records appended to the audit log",
		}),
		AuditRecordsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_dropped_total",
			Help:      "Total number of decision records dropped due to sink failures",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path"}),
		RequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

// The Inc helpers tolerate a nil receiver so components can run without
// metrics wired (tests, tooling).

func (m *Metrics) IncAuthzDecision(outcome, resourceType string) {
	if m == nil {
		return
	}
	m.AuthzDecisions.WithLabelValues(outcome, resourceType).Inc()
}

func (m *Metrics) ObserveAuthzLatency(seconds float64) {
	if m == nil {
		return
	}
	m.AuthzLatency.Observe(seconds)
}

func (m *Metrics) IncSchedulingOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.SchedulingOutcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) IncAuditWritten() {
	if m == nil {
		return
	}
	m.AuditRecordsWritten.Inc()
}

func (m *Metrics) IncAuditDropped() {
	if m == nil {
		return
	}
	m.AuditRecordsDropped.Inc()
}
