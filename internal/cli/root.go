package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigPath names a YAML configuration file; empty uses defaults.
	ConfigPath string
	// Database and Driver override the configured database.
	Database string
	Driver   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dcmindex CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dcmindex",
		Short: "dcmindex - DICOM metadata catalog",
		Long: `A hierarchical metadata catalog for DICOM objects.

Objects are filed patient, study, series, instance into an embedded
relational database and found again with hierarchical or relational
queries, wildcards, date ranges and phonetic name matching.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database location (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver: sqlite3 or duckdb (overrides config)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewRetrieveCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Execute runs the CLI with args and returns the process exit code.
// Failures are reported on stderr, or as a JSON error response on stdout
// with --format json.
func Execute(args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	f := &OutputFormatter{Format: "text", Writer: stderr, ErrWriter: stderr, Verbose: opts.Verbose}
	if opts.Format == "json" {
		f.Format, f.Writer = "json", stdout
	}
	var details interface{}
	if cause := errors.Unwrap(err); cause != nil {
		details = cause.Error()
	}
	f.Error(ErrorCode(err), err.Error(), details)
	return GetExitCode(err)
}
