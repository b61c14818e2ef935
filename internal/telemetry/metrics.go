// Package telemetry holds the Prometheus metrics and OpenTelemetry span
// helpers shared by the list, map and transaction packages.
//
// All Metrics methods are nil-safe so library code can record unconditionally
// while callers that do not care about metrics pass nil.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for operation metrics.
const (
	OutcomeOK            = "ok"
	OutcomeOutOfRange    = "out_of_range"
	OutcomeWatchTimeout  = "watch_timeout"
	OutcomeConcurrentMod = "concurrent_modification"
	OutcomeError         = "error"
)

// Transaction attempt labels.
const (
	AttemptCommitted = "committed"
	AttemptConflict  = "conflict"
	AttemptAborted   = "aborted"
)

// Metrics holds all Prometheus metrics for redislist.
type Metrics struct {
	opsTotal     *prometheus.CounterVec
	opDuration   *prometheus.HistogramVec
	txnAttempts  *prometheus.CounterVec
	txnTimeouts  prometheus.Counter
	scriptStatus *prometheus.CounterVec
}

// NewMetrics registers the metrics with reg. Passing a fresh
// prometheus.NewRegistry() per test keeps registrations isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		opsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redislist_operations_total",
				Help: "Total number of collection operations by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		opDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redislist_operation_duration_seconds",
				Help:    "Duration of collection operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		txnAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redislist_txn_attempts_total",
				Help: "Optimistic transaction attempts by result",
			},
			[]string{"result"},
		),
		txnTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "redislist_txn_watch_timeouts_total",
				Help: "Optimistic transactions that exhausted their deadline",
			},
		),
		scriptStatus: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redislist_insert_script_total",
				Help: "Positional insert script executions by returned status",
			},
			[]string{"status"},
		),
	}
}

// ObserveOp records one completed collection operation.
func (m *Metrics) ObserveOp(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(op, outcome).Inc()
	m.opDuration.WithLabelValues(op).Observe(d.Seconds())
}

// TxnAttempt records the result of one watch/multi/exec cycle.
func (m *Metrics) TxnAttempt(result string) {
	if m == nil {
		return
	}
	m.txnAttempts.WithLabelValues(result).Inc()
}

// TxnTimeout records a transaction that gave up at its deadline.
func (m *Metrics) TxnTimeout() {
	if m == nil {
		return
	}
	m.txnTimeouts.Inc()
}

// ScriptStatus records the status returned by the positional insert script.
func (m *Metrics) ScriptStatus(status string) {
	if m == nil {
		return
	}
	m.scriptStatus.WithLabelValues(status).Inc()
}
