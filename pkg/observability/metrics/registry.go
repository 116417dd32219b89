// Package metrics provides Prometheus metrics for unit-of-work transactions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry manages Prometheus metrics registration and exposure.
// It registers Go runtime collectors by default; transaction metrics are
// added through NewTransactionMetrics.
type Registry struct {
	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with default runtime collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Registry{registry: reg}
}

// Register registers a custom Prometheus collector.
func (r *Registry) Register(collector prometheus.Collector) error {
	return r.registry.Register(collector)
}

// MustRegister registers custom Prometheus collectors and panics on error.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// Handler returns an HTTP handler exposing metrics in Prometheus format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Gatherer returns the underlying prometheus.Gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// TransactionMetrics tracks unit-of-work lifecycle outcomes. A nil receiver is
// valid and records nothing, so instrumentation stays optional.
type TransactionMetrics struct {
	started    prometheus.Counter
	committed  prometheus.Counter
	rolledBack prometheus.Counter
	failed     prometheus.Counter
	active     prometheus.Gauge
	duration   prometheus.Histogram
	savepoints *prometheus.CounterVec
}

// NewTransactionMetrics creates transaction metrics and registers them with reg.
func NewTransactionMetrics(reg *Registry) *TransactionMetrics {
	m := &TransactionMetrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unitofwork_transactions_started_total",
			Help: "Total number of transactions started.",
		}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unitofwork_transactions_committed_total",
			Help: "Total number of transactions committed.",
		}),
		rolledBack: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unitofwork_transactions_rolled_back_total",
			Help: "Total number of transactions rolled back.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unitofwork_transactions_failed_total",
			Help: "Total number of transactions that ended in failure.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "unitofwork_transactions_active",
			Help: "Number of currently open transactions.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "unitofwork_transaction_duration_seconds",
			Help:    "Transaction duration from start to terminal state.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		savepoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unitofwork_savepoint_operations_total",
			Help: "Total number of savepoint operations by kind.",
		}, []string{"operation"}),
	}

	if reg != nil {
		reg.MustRegister(m.started, m.committed, m.rolledBack, m.failed, m.active, m.duration, m.savepoints)
	}
	return m
}

// TransactionStarted records a transaction entering the active state.
func (m *TransactionMetrics) TransactionStarted() {
	if m == nil {
		return
	}
	m.started.Inc()
	m.active.Inc()
}

// TransactionCommitted records a committed transaction and its duration.
func (m *TransactionMetrics) TransactionCommitted(d time.Duration) {
	if m == nil {
		return
	}
	m.committed.Inc()
	m.active.Dec()
	m.duration.Observe(d.Seconds())
}

// TransactionRolledBack records a rolled-back transaction and its duration.
func (m *TransactionMetrics) TransactionRolledBack(d time.Duration) {
	if m == nil {
		return
	}
	m.rolledBack.Inc()
	m.active.Dec()
	m.duration.Observe(d.Seconds())
}

// TransactionFailed records a transaction that ended in failure.
func (m *TransactionMetrics) TransactionFailed(d time.Duration) {
	if m == nil {
		return
	}
	m.failed.Inc()
	m.active.Dec()
	m.duration.Observe(d.Seconds())
}

// SavepointOperation records a savepoint create/rollback/release.
func (m *TransactionMetrics) SavepointOperation(op string) {
	if m == nil {
		return
	}
	m.savepoints.WithLabelValues(op).Inc()
}
