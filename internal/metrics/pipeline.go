package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Projection and synchronization Prometheus metrics.
var (
	ProjectionFieldsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blockfield",
			Name:      "projection_fields_total",
			Help:      "Projected fields by resolution source",
		},
		[]string{"source"}, // "metadata" / "content" / "missing"
	)

	ProjectionParsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blockfield",
			Name:      "projection_parses_total",
			Help:      "Slow-path document loads, by whether the parse was shared with a concurrent request",
		},
		[]string{"shared"}, // "true" / "false"
	)

	ProjectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "blockfield",
			Name:      "projection_duration_seconds",
			Help:      "Projection duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
	)

	SyncEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blockfield",
			Name:      "sync_entries_total",
			Help:      "Metadata entry writes by outcome",
		},
		[]string{"status"}, // "written" / "superseded" / "failed"
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "blockfield",
			Name:      "sync_duration_seconds",
			Help:      "Document synchronization duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	SyncQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blockfield",
			Name:      "sync_queue_depth",
			Help:      "Pending save notifications",
		},
	)

	SyncDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blockfield",
			Name:      "sync_dropped_total",
			Help:      "Save notifications rejected because the queue was full",
		},
	)

	SyncRepeatedFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blockfield",
			Name:      "sync_repeated_failures_total",
			Help:      "Documents whose synchronization failed repeatedly",
		},
	)
)

var registerPipeline sync.Once

// RegisterPipelineMetrics registers projection and sync metrics. Must be called from main.
func RegisterPipelineMetrics() {
	registerPipeline.Do(func() {
		prometheus.MustRegister(
			ProjectionFieldsTotal,
			ProjectionParsesTotal,
			ProjectionDuration,
			SyncEntriesTotal,
			SyncDuration,
			SyncQueueDepth,
			SyncDroppedTotal,
			SyncRepeatedFailuresTotal,
		)
	})
}
