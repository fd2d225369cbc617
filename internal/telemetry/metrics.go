// Package telemetry records what the catalog does: Prometheus counters and
// histograms, OpenTelemetry spans and in-process latency sketches that back
// Store.Stats.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors of one store.
type Metrics struct {
	Operations  *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	RowsCreated *prometheus.CounterVec
	RowsDeleted *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dcmindex",
			Name:      "operations_total",
			Help:      "Catalog operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dcmindex",
			Name:      "operation_duration_seconds",
			Help:      "Catalog operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}, []string{"op"}),
		RowsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dcmindex",
			Name:      "rows_created_total",
			Help:      "Rows created by ingestion, per level.",
		}, []string{"level"}),
		RowsDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dcmindex",
			Name:      "rows_deleted_total",
			Help:      "Rows deleted, per level.",
		}, []string{"level"}),
	}
}
