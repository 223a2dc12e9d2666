// Package metrics defines data-synchronization metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Sync counter vectors
var (
	SyncBatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphtrader",
		Name:      "sync_batches_total",
		Help:      "Total number of bar sync batches by symbol and status",
	}, []string{"symbol", "status"})

	SyncBarsStoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphtrader",
		Name:      "sync_bars_stored_total",
		Help:      "Total number of bars stored per symbol",
	}, []string{"symbol"})

	SyncRowsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphtrader",
		Name:      "sync_rows_rejected_total",
		Help:      "Total number of malformed rows rejected during parsing per symbol",
	}, []string{"symbol"})
)

// Sync histogram vectors
var (
	SyncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "graphtrader",
		Name:      "sync_duration_seconds",
		Help:      "Duration of bar sync batches in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"symbol"})
)

// RecordSyncBatch records a sync batch event.
// status should be one of: "success", "failure"
func RecordSyncBatch(symbol, status string, durationSeconds float64) {
	SyncBatchesTotal.WithLabelValues(symbol, status).Inc()
	SyncDuration.WithLabelValues(symbol).Observe(durationSeconds)
}

// RecordSyncBarsStored records the number of bars stored for a symbol.
func RecordSyncBarsStored(symbol string, count int) {
	SyncBarsStoredTotal.WithLabelValues(symbol).Add(float64(count))
}

// RecordSyncRowsRejected records rejected rows for a symbol.
func RecordSyncRowsRejected(symbol string, count int) {
	SyncRowsRejectedTotal.WithLabelValues(symbol).Add(float64(count))
}
