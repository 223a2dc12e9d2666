package metrics

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestRunLifecycleCounters(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordRunStarted()
		RecordRunCompleted(1.5, 50000)
	})
	assert.NotPanics(t, func() {
		RecordRunStarted()
		RecordRunFailed()
	})
	assert.NotPanics(t, func() {
		RecordRunStarted()
		RecordRunCancelled()
	})
}

func TestUpdateQueuedRuns(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name  string
		depth float64
	}{
		{name: "empty queue", depth: 0},
		{name: "busy queue", depth: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				UpdateQueuedRuns(tt.depth)
			})
		})
	}
}

func TestRecordGraphValidationFailure(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordGraphValidationFailure()
	})
}

func TestRecordMonteCarloDuration(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordMonteCarloDuration(0.25)
	})
}

func TestSyncMetrics(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordSyncBatch("EURUSD", "success", 0.8)
	})
	assert.NotPanics(t, func() {
		RecordSyncBarsStored("EURUSD", 1000)
	})
	assert.NotPanics(t, func() {
		RecordSyncRowsRejected("EURUSD", 2)
	})
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()

	handler := Handler()
	assert.NotNil(t, handler)
	assert.Implements(t, (*http.Handler)(nil), handler)
}

func BenchmarkRecordRunCompleted(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		RecordRunStarted()
		RecordRunCompleted(0.5, 1000)
	}
}
