package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/schema"
	"github.com/roach88/dcmindex/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	PrimaryKey string
	Column     string
	Parent     string
	Ancestor   string
	Where      string
	All        bool
}

// ShowOutput lists catalog rows.
type ShowOutput struct {
	Table       string      `json:"table"`
	NaturalKey  string      `json:"natural_key"`
	Descriptive []string    `json:"descriptive"`
	Rows        []store.Row `json:"rows"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <level> [natural-key]",
		Short: "List raw catalog rows",
		Long: `List the rows of one level, straight from its table.

Without a key every row is listed. Rows can also be selected by primary
key (--pk), parent primary key (--parent) or a column of an ancestor
(--ancestor STUDY --where ACCESSIONNUMBER=A0001). Text output shows the
key and descriptive columns; --all shows every non-empty column.

Examples:
  dcmindex show patient
  dcmindex show study 1.2.840.113619.2.1 --all
  dcmindex show instance --ancestor study --where ACCESSIONNUMBER=A0001
  dcmindex show instance --pk 01920f4e-8a37-7c1b-9a51-6f4e2a1d3c5b --column LOCAL_FILE`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PrimaryKey, "pk", "", "select one row by primary key")
	cmd.Flags().StringVar(&opts.Column, "column", "", "print one column of the --pk row")
	cmd.Flags().StringVar(&opts.Parent, "parent", "", "select the children of this parent primary key")
	cmd.Flags().StringVar(&opts.Ancestor, "ancestor", "", "ancestor level for --where")
	cmd.Flags().StringVar(&opts.Where, "where", "", "ancestor column as COLUMN=value")
	cmd.Flags().BoolVar(&opts.All, "all", false, "show every non-empty column")

	return cmd
}

func runShow(opts *ShowOptions, args []string, cmd *cobra.Command) error {
	if opts.Column != "" && opts.PrimaryKey == "" {
		return NewExitError(ExitCommandError, "--column requires --pk")
	}
	if (opts.Ancestor == "") != (opts.Where == "") {
		return NewExitError(ExitCommandError, "--ancestor and --where go together")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	level, err := model.ParseLevel(s.store.Model(), args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid level", err)
	}

	if opts.Column != "" {
		v, err := s.store.FindColumn(ctx, level, opts.PrimaryKey, opts.Column)
		if err != nil {
			return WrapStoreError("lookup failed", err)
		}
		row := store.Row{strings.ToUpper(opts.Column): v}
		if opts.Format == "json" {
			return formatter(opts.RootOptions, cmd).Success(row)
		}
		fmt.Fprintln(cmd.OutOrStdout(), row.String(strings.ToUpper(opts.Column)))
		return nil
	}

	rows, err := selectShowRows(ctx, s.store, opts, level, args[1:])
	if err != nil {
		return err
	}

	out := ShowOutput{Rows: rows}
	if out.Table, err = s.store.TableNameFor(level); err != nil {
		return WrapStoreError("invalid level", err)
	}
	out.NaturalKey, _ = s.store.NaturalKeyColumnFor(level)
	if out.Descriptive, err = s.store.DescriptiveColumnsFor(level); err != nil {
		return WrapStoreError("invalid level", err)
	}

	if opts.Format == "json" {
		return formatter(opts.RootOptions, cmd).Success(out)
	}

	w := cmd.OutOrStdout()
	for _, row := range rows {
		fmt.Fprintln(w, formatRow(row, showColumns(out, row, opts.All)))
	}
	fmt.Fprintf(w, "%d row(s) in %s\n", len(rows), out.Table)
	return nil
}

func selectShowRows(ctx context.Context, st *store.Store, opts *ShowOptions, level model.Level, args []string) ([]store.Row, error) {
	var (
		rows []store.Row
		err  error
	)
	switch {
	case opts.PrimaryKey != "":
		var row store.Row
		if row, err = st.FindRow(ctx, level, opts.PrimaryKey); err == nil {
			rows = []store.Row{row}
		}
	case opts.Parent != "":
		rows, err = st.FindAllByParent(ctx, level, opts.Parent)
	case opts.Ancestor != "":
		ancestor, perr := model.ParseLevel(st.Model(), opts.Ancestor)
		if perr != nil {
			return nil, WrapExitError(ExitCommandError, "invalid ancestor", perr)
		}
		column, value, ok := strings.Cut(opts.Where, "=")
		if !ok {
			return nil, NewExitError(ExitCommandError, "--where wants COLUMN=value")
		}
		rows, err = st.FindAllByJoinedAncestorAttribute(ctx, level, ancestor, column, value)
	case len(args) > 0:
		rows, err = st.FindAllByNaturalKey(ctx, level, args[0])
	default:
		rows, err = st.FindAll(ctx, level)
	}
	if err != nil {
		return nil, WrapStoreError("lookup failed", err)
	}
	return rows, nil
}

// showColumns picks the columns printed for row: the key columns first,
// then the descriptive ones or every other non-empty column.
func showColumns(out ShowOutput, row store.Row, all bool) []string {
	cols := []string{schema.ColPrimaryKey}
	if out.NaturalKey != "" {
		cols = append(cols, out.NaturalKey)
	}
	if !all {
		return append(cols, out.Descriptive...)
	}
	seen := map[string]bool{}
	for _, c := range cols {
		seen[c] = true
	}
	var rest []string
	for c, v := range row {
		if !seen[c] && v != nil {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

func formatRow(row store.Row, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		if v := row.String(c); v != "" {
			parts = append(parts, c+"="+v)
		}
	}
	return strings.Join(parts, " ")
}
