package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dcmindex/internal/schema"
)

// InitResult describes an initialized catalog.
type InitResult struct {
	Driver string         `json:"driver"`
	DSN    string         `json:"dsn"`
	Model  string         `json:"model"`
	Tables map[string]int `json:"tables"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the catalog schema",
		Long: `Create the catalog database and its tables.

Tables are synthesized from the hierarchy model and the attribute
dictionary. An existing catalog is left unchanged.

Examples:
  dcmindex init --db ./catalog.db
  dcmindex init --config ./dcmindex.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	cat := s.store.Catalog()
	result := InitResult{
		Driver: s.cfg.Database.Driver,
		DSN:    s.cfg.Database.DSN,
		Model:  s.store.Model().Name(),
		Tables: map[string]int{},
	}
	for _, level := range s.store.Model().Levels() {
		table := schema.TableFor(level)
		result.Tables[table] = len(cat.Columns(table))
	}

	if opts.Format == "json" {
		return formatter(opts, cmd).Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Catalog ready: %s (%s, model %s)\n", result.DSN, result.Driver, result.Model)
	for _, level := range s.store.Model().Levels() {
		table := schema.TableFor(level)
		fmt.Fprintf(w, "  %-14s %d columns\n", table, result.Tables[table])
	}
	return nil
}
