package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
)

// relativeAccuracy of the latency sketches.
const relativeAccuracy = 0.01

// OpStats summarises one operation.
type OpStats struct {
	Op     string
	Count  int64
	Errors int64
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Max    time.Duration
}

type opLatency struct {
	sketch *ddsketch.DDSketch
	errors int64
	max    time.Duration
}

// Latencies keeps one DDSketch per operation.
type Latencies struct {
	mu  sync.Mutex
	ops map[string]*opLatency
}

// NewLatencies returns an empty recorder.
func NewLatencies() *Latencies {
	return &Latencies{ops: make(map[string]*opLatency)}
}

// Observe adds one sample for op.
func (l *Latencies) Observe(op string, d time.Duration, failed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.ops[op]
	if !ok {
		sketch, err := ddsketch.NewDefaultDDSketch(relativeAccuracy)
		if err != nil {
			return
		}
		o = &opLatency{sketch: sketch}
		l.ops[op] = o
	}
	// Sketches only accept non-negative values.
	if d < 0 {
		d = 0
	}
	o.sketch.Add(d.Seconds())
	if d > o.max {
		o.max = d
	}
	if failed {
		o.errors++
	}
}

// Snapshot returns the stats of every operation, sorted by name.
func (l *Latencies) Snapshot() []OpStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]OpStats, 0, len(l.ops))
	for op, o := range l.ops {
		out = append(out, OpStats{
			Op:     op,
			Count:  int64(o.sketch.GetCount()),
			Errors: o.errors,
			P50:    quantile(o.sketch, 0.50),
			P95:    quantile(o.sketch, 0.95),
			P99:    quantile(o.sketch, 0.99),
			Max:    o.max,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Op < out[j].Op })
	return out
}

func quantile(s *ddsketch.DDSketch, q float64) time.Duration {
	v, err := s.GetValueAtQuantile(q)
	if err != nil {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
