package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/store"
)

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	*RootOptions
	File      string
	Reference string
	Set       []string
}

// InsertedObject reports one filed object.
type InsertedObject struct {
	File    string            `json:"file,omitempty"`
	Keys    map[string]string `json:"keys"`
	Created []string          `json:"created"`
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "insert [objects.yaml...]",
		Short: "File objects into the catalog",
		Long: `File objects into the catalog.

Each YAML document names a file, its reference type and its attributes
by keyword or tag. A single object can also be given with --set.
Inserting an object twice changes nothing.

Examples:
  dcmindex insert --db ./catalog.db objects.yaml
  dcmindex insert --db ./catalog.db --file /data/1.dcm --reference referenced \
    --set PatientID=P1 --set StudyInstanceUID=1.2.3 \
    --set SeriesInstanceUID=1.2.3.4 --set SOPInstanceUID=1.2.3.4.5`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "stored file of the --set object")
	cmd.Flags().StringVar(&opts.Reference, "reference", "copied", "reference type of the --set object (copied|referenced)")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "attribute as name=value (repeatable)")

	return cmd
}

func runInsert(opts *InsertOptions, paths []string, cmd *cobra.Command) error {
	if len(paths) == 0 && len(opts.Set) == 0 {
		return NewExitError(ExitCommandError, "nothing to insert: give object files or --set attributes")
	}

	f := formatter(opts.RootOptions, cmd)
	var objects []ObjectSpec
	for _, path := range paths {
		objs, err := ReadObjectsFile(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", path), err)
		}
		f.VerboseLog("Read %d object(s) from %s", len(objs), path)
		objects = append(objects, objs...)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	d := s.store.Dictionary()

	work := make([]pending, 0, len(objects)+1)
	for i, o := range objects {
		attrs, err := o.Resolve(d)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("object %d", i+1), err)
		}
		work = append(work, pending{file: o.File, reference: o.Reference, attrs: attrs})
	}
	if len(opts.Set) > 0 {
		attrs, err := ParseAssignments(d, opts.Set)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --set", err)
		}
		work = append(work, pending{file: opts.File, reference: opts.Reference, attrs: attrs})
	}

	inserted := []InsertedObject{}
	for i, p := range work {
		ref := store.Copied
		if p.reference != "" {
			if ref, err = store.ParseFileReference(p.reference); err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("object %d", i+1), err)
			}
		}

		res, err := s.store.Insert(ctx, p.attrs, p.file, ref)
		if err != nil {
			return WrapStoreError("insert failed", err)
		}
		inserted = append(inserted, insertedObject(p.file, res))
		slog.Debug("object filed", "file", p.file, "created", res.Created())
	}

	if opts.Format == "json" {
		return f.Success(inserted)
	}

	created := 0
	for _, o := range inserted {
		created += len(o.Created)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Filed %d object(s), %d new row(s)\n", len(inserted), created)
	return nil
}

// pending is a resolved object awaiting insertion.
type pending struct {
	file      string
	reference string
	attrs     dict.AttributeSet
}

func insertedObject(file string, res *store.InsertResult) InsertedObject {
	o := InsertedObject{File: file, Keys: map[string]string{}, Created: []string{}}
	for _, lk := range res.Levels {
		o.Keys[string(lk.Level)] = lk.Key
		if lk.Created {
			o.Created = append(o.Created, string(lk.Level))
		}
	}
	return o
}
