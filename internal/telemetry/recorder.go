package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
)

// Recorder ties metrics, spans and latency sketches to one operation call.
// The zero value is not usable; a nil *Recorder records nothing.
type Recorder struct {
	metrics   *Metrics
	latencies *Latencies
}

// NewRecorder returns a recorder. A nil reg disables Prometheus metrics.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{latencies: NewLatencies()}
	if reg != nil {
		r.metrics = NewMetrics(reg)
	}
	return r
}

// Start begins op and returns the span context and a finish function that
// must be called with the operation's error.
func (r *Recorder) Start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if r == nil {
		return ctx, func(error) {}
	}
	ctx, span := StartSpan(ctx, "store."+op, attrs...)
	start := time.Now()
	return ctx, func(err error) {
		elapsed := time.Since(start)
		r.latencies.Observe(op, elapsed, err != nil)
		if r.metrics != nil {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			r.metrics.Operations.WithLabelValues(op, outcome).Inc()
			r.metrics.Duration.WithLabelValues(op).Observe(elapsed.Seconds())
		}
		EndSpan(span, err)
	}
}

// RowCreated counts a row created at level.
func (r *Recorder) RowCreated(level string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.RowsCreated.WithLabelValues(level).Inc()
}

// RowsDeleted counts n rows deleted at level.
func (r *Recorder) RowsDeleted(level string, n int) {
	if r == nil || r.metrics == nil || n == 0 {
		return
	}
	r.metrics.RowsDeleted.WithLabelValues(level).Add(float64(n))
}

// Snapshot returns per-operation statistics.
func (r *Recorder) Snapshot() []OpStats {
	if r == nil {
		return nil
	}
	return r.latencies.Snapshot()
}
