package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "objectpool"

// poolMetrics holds the Prometheus collectors shared across every
// ObjectPool instance in the process, labeled by pool name so one process
// can run several distinct pools (e.g. one per database shard) without
// clobbering each other's series.
type poolMetrics struct {
	size      *prometheus.GaugeVec
	created   *prometheus.CounterVec
	invalid   *prometheus.CounterVec
	borrowed  *prometheus.CounterVec
	returned  *prometheus.CounterVec
	createErr *prometheus.CounterVec
}

var defaultMetrics = newPoolMetrics() //nolint:gochecknoglobals

func newPoolMetrics() *poolMetrics {
	labels := []string{"pool"}

	return &poolMetrics{
		size: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pool_size",
			Help:      "Current number of objects tracked by the pool, borrowed or idle.",
		}, labels),
		created: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "objects_created_total",
			Help:      "Total number of objects created by Manager.Create.",
		}, labels),
		invalid: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "objects_invalidated_total",
			Help:      "Total number of objects invalidated and removed from the pool.",
		}, labels),
		borrowed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "borrow_total",
			Help:      "Total number of successful Borrow calls.",
		}, labels),
		returned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "return_total",
			Help:      "Total number of Return calls that put an object back on the idle deque.",
		}, labels),
		createErr: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "create_errors_total",
			Help:      "Total number of failed Manager.Create attempts, including retries.",
		}, labels),
	}
}

func (m *poolMetrics) recordCreated(pool string) {
	m.size.WithLabelValues(pool).Inc()
	m.created.WithLabelValues(pool).Inc()
}

func (m *poolMetrics) recordInvalidated(pool string) {
	m.size.WithLabelValues(pool).Dec()
	m.invalid.WithLabelValues(pool).Inc()
}

func (m *poolMetrics) recordBorrowed(pool string) {
	m.borrowed.WithLabelValues(pool).Inc()
}

func (m *poolMetrics) recordReturned(pool string) {
	m.returned.WithLabelValues(pool).Inc()
}

func (m *poolMetrics) recordCreateError(pool string) {
	m.createErr.WithLabelValues(pool).Inc()
}
