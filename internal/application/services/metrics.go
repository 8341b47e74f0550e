package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	MetricRepositoryOperationsTotal = "reminder_repository_operations_total"
	MetricRepositoryDuration        = "reminder_repository_operation_duration_seconds"
	MetricRepositoryBusy            = "reminder_repository_busy_operations"
	MetricAuthAttemptsTotal         = "auth_login_attempts_total"
)

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeFailure  = "failure"
)

// Metrics contains Prometheus collectors for the application services.
// The collectors are not registered; call Register to expose them.
type Metrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	busy         prometheus.GaugeFunc
	authAttempts *prometheus.CounterVec
}

// NewMetrics creates the service collectors. busy backs the gauge reporting
// outstanding repository operations.
func NewMetrics(busy *IdlingResource) *Metrics {
	return &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRepositoryOperationsTotal,
				Help: "Total number of reminder repository operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRepositoryDuration,
				Help:    "Histogram of reminder repository operation duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),
		busy: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: MetricRepositoryBusy,
				Help: "Number of reminder repository operations currently in progress",
			},
			func() float64 { return float64(busy.Count()) },
		),
		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAuthAttemptsTotal,
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operations,
		m.duration,
		m.busy,
		m.authAttempts,
	}
}

func (m *Metrics) observeOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) incAuthAttempt(outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(outcome).Inc()
}
