package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/store"
)

// RetrieveOptions holds flags for the retrieve command.
type RetrieveOptions struct {
	*RootOptions
	Set  []string
	Root string
}

// RetrievedObject is one located object.
type RetrievedObject struct {
	Path              string `json:"path"`
	Reference         string `json:"reference"`
	SOPInstanceUID    string `json:"sop_instance_uid"`
	SOPClassUID       string `json:"sop_class_uid,omitempty"`
	TransferSyntaxUID string `json:"transfer_syntax_uid,omitempty"`
}

// NewRetrieveCommand creates the retrieve command.
func NewRetrieveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RetrieveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "retrieve <level>",
		Short: "Locate the stored files below exact keys",
		Long: `Locate the stored files of every object below a set of exact keys.

The unique key of the retrieve level and of every level above it is
required; the retrieve level may list several values (a\b).

Examples:
  dcmindex retrieve study --set PatientID=P1 --set StudyInstanceUID=1.2.3
  dcmindex retrieve series --root study --set StudyInstanceUID=1.2.3 \
    --set 'SeriesInstanceUID=1.2.3.4\1.2.3.5'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetrieve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "unique key as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Root, "root", "", "information model root: patient or study (default from config)")

	return cmd
}

func runRetrieve(opts *RetrieveOptions, levelName string, cmd *cobra.Command) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	m := s.store.Model()
	level, err := model.ParseLevel(m, levelName)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid level", err)
	}
	root := s.cfg.Root()
	if opts.Root != "" {
		if root, err = model.ParseRoot(opts.Root); err != nil {
			return WrapExitError(ExitCommandError, "invalid root", err)
		}
	}
	keys, err := ParseAssignments(s.store.Dictionary(), opts.Set)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --set", err)
	}

	locs, err := s.store.Retrieve(ctx, store.RetrieveRequest{Keys: keys, Level: level, Root: root})
	if err != nil {
		return WrapStoreError("retrieve failed", err)
	}

	objects := make([]RetrievedObject, len(locs))
	for i, loc := range locs {
		objects[i] = RetrievedObject{
			Path:              loc.Path,
			Reference:         string(loc.Reference),
			SOPInstanceUID:    loc.SOPInstanceUID,
			SOPClassUID:       loc.SOPClassUID,
			TransferSyntaxUID: loc.TransferSyntaxUID,
		}
	}

	if opts.Format == "json" {
		return formatter(opts.RootOptions, cmd).Success(objects)
	}

	w := cmd.OutOrStdout()
	for _, o := range objects {
		fmt.Fprintf(w, "%s\t%s\t%s\n", o.SOPInstanceUID, o.Reference, o.Path)
	}
	fmt.Fprintf(w, "%d object(s)\n", len(objects))
	return nil
}
