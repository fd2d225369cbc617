package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// StatsOutput summarizes the catalog.
type StatsOutput struct {
	Rows       map[string]int     `json:"rows"`
	Objects    int                `json:"objects"`
	StoredSize int64              `json:"stored_bytes"`
	Operations []OperationStats   `json:"operations"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// OperationStats is the latency summary of one operation in this process.
type OperationStats struct {
	Op     string        `json:"op"`
	Count  int64         `json:"count"`
	Errors int64         `json:"errors"`
	P50    time.Duration `json:"p50_ns"`
	P99    time.Duration `json:"p99_ns"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog",
		Long: `Summarize the catalog: rows per level, stored objects and their
total size, and the latency of the operations stats itself ran.

With telemetry.metrics enabled in the configuration, the Prometheus
counters collected during the command are included.

Examples:
  dcmindex stats --db ./catalog.db
  dcmindex stats --config ./dcmindex.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}
	return cmd
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	counts, err := s.store.Counts(ctx)
	if err != nil {
		return WrapStoreError("count failed", err)
	}
	entries, err := s.store.Manifest(ctx)
	if err != nil {
		return WrapStoreError("manifest failed", err)
	}

	out := StatsOutput{Rows: map[string]int{}, Objects: len(entries), Operations: []OperationStats{}}
	for level, n := range counts {
		out.Rows[string(level)] = n
	}
	for _, e := range entries {
		out.StoredSize += e.FileSize
	}
	for _, st := range s.store.Stats() {
		out.Operations = append(out.Operations, OperationStats{
			Op: st.Op, Count: st.Count, Errors: st.Errors, P50: st.P50, P99: st.P99,
		})
	}
	if s.registry != nil {
		if out.Metrics, err = counterTotals(s.registry); err != nil {
			return WrapExitError(ExitFailure, "failed to gather metrics", err)
		}
	}

	if opts.Format == "json" {
		return formatter(opts, cmd).Success(out)
	}

	w := cmd.OutOrStdout()
	for _, level := range s.store.Model().Levels() {
		fmt.Fprintf(w, "%-14s %s\n", level, humanize.Comma(int64(counts[level])))
	}
	fmt.Fprintf(w, "%d object(s), %s stored\n", out.Objects, humanize.Bytes(uint64(out.StoredSize)))
	for _, op := range out.Operations {
		fmt.Fprintf(w, "  %-22s n=%d errors=%d p50=%s p99=%s\n", op.Op, op.Count, op.Errors, op.P50, op.P99)
	}
	names := make([]string, 0, len(out.Metrics))
	for name := range out.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s %g\n", name, out.Metrics[name])
	}
	return nil
}

// counterTotals sums every counter family of reg.
func counterTotals(reg *prometheus.Registry) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	out := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				out[mf.GetName()] += c.GetValue()
			}
		}
	}
	return out, nil
}
