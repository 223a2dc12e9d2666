// Package metrics provides the centralized Prometheus metrics registry for GraphTrader.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	RunsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "graphtrader",
		Name:      "runs_started_total",
		Help:      "Total number of backtest runs started",
	})
	RunsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "graphtrader",
		Name:      "runs_completed_total",
		Help:      "Total number of backtest runs completed successfully",
	})
	RunsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "graphtrader",
		Name:      "runs_failed_total",
		Help:      "Total number of backtest runs that failed",
	})
	RunsCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "graphtrader",
		Name:      "runs_cancelled_total",
		Help:      "Total number of backtest runs cancelled by the caller",
	})
	BarsProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "graphtrader",
		Name:      "bars_processed_total",
		Help:      "Total number of bars replayed across all runs",
	})
	GraphValidationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "graphtrader",
		Name:      "graph_validation_failures_total",
		Help:      "Total number of strategy documents rejected by validation",
	})
)

// Gauge metrics
var (
	QueuedRuns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "graphtrader",
		Name:      "queued_runs",
		Help:      "Number of run requests waiting in the worker queue",
	})
	ActiveRuns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "graphtrader",
		Name:      "active_runs",
		Help:      "Number of backtest runs currently executing",
	})
)

// Histogram metrics
var (
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "graphtrader",
		Name:      "run_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
	})
	MonteCarloDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "graphtrader",
		Name:      "monte_carlo_duration_seconds",
		Help:      "Duration of monte carlo analyses in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(RunsStartedTotal)
		registry.MustRegister(RunsCompletedTotal)
		registry.MustRegister(RunsFailedTotal)
		registry.MustRegister(RunsCancelledTotal)
		registry.MustRegister(BarsProcessedTotal)
		registry.MustRegister(GraphValidationFailuresTotal)

		registry.MustRegister(QueuedRuns)
		registry.MustRegister(ActiveRuns)

		registry.MustRegister(RunDuration)
		registry.MustRegister(MonteCarloDuration)

		registry.MustRegister(SyncBatchesTotal)
		registry.MustRegister(SyncBarsStoredTotal)
		registry.MustRegister(SyncRowsRejectedTotal)
		registry.MustRegister(SyncDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordRunStarted records the start of a backtest run.
func RecordRunStarted() {
	RunsStartedTotal.Inc()
	ActiveRuns.Inc()
}

// RecordRunCompleted records a successful run with its duration.
func RecordRunCompleted(durationSeconds float64, bars int) {
	RunsCompletedTotal.Inc()
	ActiveRuns.Dec()
	RunDuration.Observe(durationSeconds)
	BarsProcessedTotal.Add(float64(bars))
}

// RecordRunFailed records a failed run.
func RecordRunFailed() {
	RunsFailedTotal.Inc()
	ActiveRuns.Dec()
}

// RecordRunCancelled records a cancelled run.
func RecordRunCancelled() {
	RunsCancelledTotal.Inc()
	ActiveRuns.Dec()
}

// RecordGraphValidationFailure records a rejected strategy document.
func RecordGraphValidationFailure() {
	GraphValidationFailuresTotal.Inc()
}

// UpdateQueuedRuns updates the worker queue depth gauge.
func UpdateQueuedRuns(count float64) {
	QueuedRuns.Set(count)
}

// RecordMonteCarloDuration records a monte carlo analysis duration.
func RecordMonteCarloDuration(durationSeconds float64) {
	MonteCarloDuration.Observe(durationSeconds)
}
