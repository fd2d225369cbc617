package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/store"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	PrimaryKey bool
	RowOnly    bool
}

// DeleteOutput reports a delete.
type DeleteOutput struct {
	Rows  int      `json:"rows"`
	Files []string `json:"files"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <level> <key>",
		Short: "Remove a record and everything below it",
		Long: `Remove a record and everything below it.

The record is named by its natural key (PatientID, StudyInstanceUID,
SeriesInstanceUID, SOPInstanceUID) or, with --pk, by primary key.
Copied files of removed objects are deleted; referenced files are kept.

Examples:
  dcmindex delete study 1.2.840.113619.2.1
  dcmindex delete series --pk 01920f4e-8a37-7c1b-9a51-6f4e2a1d3c5b --row-only`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.PrimaryKey, "pk", false, "key is a primary key")
	cmd.Flags().BoolVar(&opts.RowOnly, "row-only", false, "delete the row only, leaving its children (requires --pk)")

	return cmd
}

func runDelete(opts *DeleteOptions, levelName, key string, cmd *cobra.Command) error {
	if opts.RowOnly && !opts.PrimaryKey {
		return NewExitError(ExitCommandError, "--row-only requires --pk")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	level, err := model.ParseLevel(s.store.Model(), levelName)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid level", err)
	}

	out := DeleteOutput{Files: []string{}}
	switch {
	case opts.RowOnly:
		if _, err := s.store.FindRow(ctx, level, key); err != nil {
			return WrapStoreError("delete failed", err)
		}
		if err := s.store.DeleteRow(ctx, level, key); err != nil {
			return WrapStoreError("delete failed", err)
		}
		out.Rows = 1
	default:
		var res *store.DeleteResult
		if opts.PrimaryKey {
			res, err = s.store.DeleteSubtree(ctx, level, key)
		} else {
			res, err = s.store.DeleteSubtreeByNaturalKey(ctx, level, key)
		}
		if err != nil {
			return WrapStoreError("delete failed", err)
		}
		out.Rows = res.Rows
		out.Files = append(out.Files, res.Files...)
	}

	if opts.Format == "json" {
		return formatter(opts.RootOptions, cmd).Success(out)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d row(s), %d file(s)\n", out.Rows, len(out.Files))
	return nil
}
