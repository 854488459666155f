// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scheduler metrics
	TicksTotal       prometheus.Counter
	SchedulerRunning prometheus.Gauge
	ActiveConfigs    prometheus.Gauge
	TickDuration     prometheus.Histogram

	// Evaluation metrics
	EvaluationsTotal *prometheus.CounterVec
	EvaluationErrors *prometheus.CounterVec

	// Transfer metrics
	TransfersConfirmed prometheus.Counter
	LamportsSwept      prometheus.Counter
	TransferDuration   prometheus.Histogram

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Secrets metrics
	SecretsResident prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_auto_sender"
	}

	return &Metrics{
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of scheduler ticks executed",
		}),
		SchedulerRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "running",
			Help:      "1 when the scheduler loop is running, 0 when stopped",
		}),
		ActiveConfigs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "active_configs",
			Help:      "Number of active auto-sender configurations",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one full scheduler tick",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),

		EvaluationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "total",
			Help:      "Total number of per-config evaluations by outcome",
		}, []string{"outcome"}),
		EvaluationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "errors_total",
			Help:      "Total number of evaluation errors by kind",
		}, []string{"kind"}),

		TransfersConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "confirmed_total",
			Help:      "Total number of confirmed transfers",
		}),
		LamportsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "lamports_swept_total",
			Help:      "Total lamports swept to destinations",
		}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Time from transaction build to confirmation",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "RPC call latency by method",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration by database and operation",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Database query errors by database and operation",
		}, []string{"database", "operation"}),

		SecretsResident: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "secrets",
			Name:      "resident",
			Help:      "Number of signing keys currently held in memory",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTick records one scheduler tick and its duration.
func RecordTick(seconds float64) {
	DefaultMetrics.TicksTotal.Inc()
	DefaultMetrics.TickDuration.Observe(seconds)
}

// SetSchedulerRunning updates the scheduler running gauge.
func SetSchedulerRunning(running bool) {
	if running {
		DefaultMetrics.SchedulerRunning.Set(1)
	} else {
		DefaultMetrics.SchedulerRunning.Set(0)
	}
}

// SetActiveConfigs updates the active configurations gauge.
func SetActiveConfigs(n int) {
	DefaultMetrics.ActiveConfigs.Set(float64(n))
}

// RecordEvaluation records one evaluation outcome.
func RecordEvaluation(outcome string) {
	DefaultMetrics.EvaluationsTotal.WithLabelValues(outcome).Inc()
}

// RecordEvaluationError records an evaluation error by kind.
func RecordEvaluationError(kind string) {
	DefaultMetrics.EvaluationErrors.WithLabelValues(kind).Inc()
}

// RecordTransfer records a confirmed transfer.
func RecordTransfer(lamports uint64, seconds float64) {
	DefaultMetrics.TransfersConfirmed.Inc()
	DefaultMetrics.LamportsSwept.Add(float64(lamports))
	DefaultMetrics.TransferDuration.Observe(seconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// SetSecretsResident updates the resident signing keys gauge.
func SetSecretsResident(n int) {
	DefaultMetrics.SecretsResident.Set(float64(n))
}
