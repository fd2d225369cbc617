package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Set        []string
	Relational bool
	Root       string
	Limit      int
}

// QueryMatch is one query result.
type QueryMatch struct {
	Level      string            `json:"level"`
	Key        string            `json:"key"`
	Attributes map[string]string `json:"attributes"`
}

// QueryOutput is the complete query result.
type QueryOutput struct {
	Level     string       `json:"level"`
	Matches   []QueryMatch `json:"matches"`
	Unmatched []string     `json:"unmatched,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <level>",
		Short: "Find records at a hierarchy level",
		Long: `Find records at PATIENT, STUDY, SERIES or INSTANCE level.

Each --set attribute is a matching key; an empty value asks for the
attribute without constraining it. Values support * and ? wildcards,
date and time ranges (20030701-20030731), lists (a\b) and, for person
names, canonical and phonetic matching. The unique key of the queried
level is always returned.

Hierarchical queries need the exact unique key of every level above the
queried one; --relational lifts that requirement.

Examples:
  dcmindex query study --set PatientID=P1 --set StudyDate=20030701-20030731
  dcmindex query series --relational --set Modality=CT --set SeriesDescription=
  dcmindex query study --root study --set PatientName=DOE*`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "matching key as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Relational, "relational", false, "relational matching")
	cmd.Flags().StringVar(&opts.Root, "root", "", "information model root: patient or study (default from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "stop after this many matches (0 = all)")

	return cmd
}

func runQuery(opts *QueryOptions, levelName string, cmd *cobra.Command) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	req, err := queryRequest(s, opts, levelName)
	if err != nil {
		return err
	}

	cursor, err := s.store.OpenQuery(ctx, req)
	if err != nil {
		return WrapStoreError("query failed", err)
	}
	defer cursor.Close()

	d := s.store.Dictionary()
	out := QueryOutput{Level: string(req.Level), Matches: []QueryMatch{}}
	var results []*store.Result
	for opts.Limit <= 0 || len(results) < opts.Limit {
		res, ok, err := cursor.Next(ctx)
		if err != nil {
			return WrapStoreError("query failed", err)
		}
		if !ok {
			break
		}
		results = append(results, res)
		out.Matches = append(out.Matches, QueryMatch{
			Level:      string(res.Level),
			Key:        res.Key,
			Attributes: keywordMap(d, res.Attributes),
		})
	}
	if cursor.UnmatchedOptionalKeysPresent() {
		for _, t := range cursor.Unmatched() {
			out.Unmatched = append(out.Unmatched, attributeName(d, t))
		}
	}

	if opts.Format == "json" {
		return formatter(opts.RootOptions, cmd).Success(out)
	}

	w := cmd.OutOrStdout()
	for _, res := range results {
		fmt.Fprintf(w, "%s %s\n", res.Level, formatAttributes(d, res.Attributes))
	}
	fmt.Fprintf(w, "%d match(es)\n", len(results))
	if len(out.Unmatched) > 0 {
		fmt.Fprintf(w, "unmatched keys: %v\n", out.Unmatched)
	}
	return nil
}

// queryRequest builds the request, adding the unique key of every level
// from the root down to the queried one.
func queryRequest(s *session, opts *QueryOptions, levelName string) (store.Request, error) {
	m, d := s.store.Model(), s.store.Dictionary()
	level, err := model.ParseLevel(m, levelName)
	if err != nil {
		return store.Request{}, WrapExitError(ExitCommandError, "invalid level", err)
	}

	root := s.cfg.Root()
	if opts.Root != "" {
		if root, err = model.ParseRoot(opts.Root); err != nil {
			return store.Request{}, WrapExitError(ExitCommandError, "invalid root", err)
		}
	}

	attrs, err := ParseAssignments(d, opts.Set)
	if err != nil {
		return store.Request{}, WrapExitError(ExitCommandError, "invalid --set", err)
	}
	addReturnKeys(m, attrs, level, opts.Relational)

	return store.Request{
		Attributes: attrs,
		Level:      level,
		Relational: opts.Relational,
		Root:       root,
	}, nil
}

// addReturnKeys requests the unique key of level, and in relational mode
// those of its ancestors, when attrs does not mention them. Hierarchical
// requests carry the ancestor keys already. Optional levels are skipped.
func addReturnKeys(m model.Model, attrs dict.AttributeSet, level model.Level, relational bool) {
	for _, l := range model.Ancestors(m, level) {
		if m.Optional(l) || (l != level && !relational) {
			continue
		}
		if key := m.UniqueKey(l); !attrs.Has(key) {
			attrs[key] = ""
		}
	}
}
