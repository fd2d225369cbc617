package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/dcmindex/internal/export"
)

// RestoreOutput reports a restore.
type RestoreOutput struct {
	Records int            `json:"records"`
	Objects int            `json:"objects"`
	Orphans int            `json:"orphans"`
	Created map[string]int `json:"created"`
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <dump>",
		Short: "Re-file the objects of a dump",
		Long: `Re-file every object of a dump written by export --dump.

Each object is rebuilt from its row and its ancestors' rows and inserted
again, so restoring into a catalog that already holds it changes
nothing. The target may use another driver or a wider dictionary.

Examples:
  dcmindex restore --db ./copy.duckdb --driver duckdb ./catalog.pb`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runRestore(opts *RootOptions, path string, cmd *cobra.Command) error {
	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open dump", err)
	}
	records, err := export.ReadDump(f)
	f.Close()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read dump", err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := export.Restore(ctx, s.store, records)
	if err != nil {
		return WrapStoreError("restore failed", err)
	}

	out := RestoreOutput{
		Records: len(records),
		Objects: res.Objects,
		Orphans: res.Orphans,
		Created: map[string]int{},
	}
	for level, n := range res.Created {
		out.Created[string(level)] = n
	}

	if opts.Format == "json" {
		return formatter(opts, cmd).Success(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Restored %s object(s) from %s record(s)\n",
		humanize.Comma(int64(out.Objects)), humanize.Comma(int64(out.Records)))
	for _, level := range s.store.Model().Levels() {
		if n := res.Created[level]; n > 0 {
			fmt.Fprintf(w, "  %-14s %s new\n", level, humanize.Comma(int64(n)))
		}
	}
	if out.Orphans > 0 {
		fmt.Fprintf(w, "  %d orphan row(s) skipped\n", out.Orphans)
	}
	return nil
}
