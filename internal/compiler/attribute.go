// Package compiler turns CUE attribute declarations into dictionary
// entries, so a site can catalogue private or newer attributes without
// rebuilding:
//
//	attribute: PatientMotherBirthName: {
//		tag:   "(0010,1060)"
//		vr:    "PN"
//		level: "PATIENT"
//	}
//
// The struct label is the keyword. kind defaults to "stored".
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dcmindex/internal/dict"
)

// Attribute kinds accepted in CUE.
const (
	KindStored      = "stored"
	KindSynthetic   = "synthetic"
	KindBookkeeping = "bookkeeping"
)

// CompileAttribute parses one CUE attribute struct into a dict.Attribute.
//
// The value should be the attribute struct itself, e.g.:
//
//	v := cuecontext.New().CompileString(src)
//	attr, err := CompileAttribute(v.LookupPath(cue.ParsePath("attribute.PatientWeight")))
func CompileAttribute(v cue.Value) (dict.Attribute, error) {
	if err := v.Err(); err != nil {
		return dict.Attribute{}, formatCUEError(err)
	}

	var attr dict.Attribute
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		attr.Keyword = labels[len(labels)-1].String()
	}
	if attr.Keyword == "" {
		return dict.Attribute{}, &CompileError{Field: "keyword", Message: "attribute has no label", Pos: v.Pos()}
	}

	tagStr, err := requiredString(v, "tag")
	if err != nil {
		return dict.Attribute{}, err
	}
	attr.Tag, err = dict.ParseTag(tagStr)
	if err != nil {
		return dict.Attribute{}, &CompileError{
			Field:   "tag",
			Message: err.Error(),
			Pos:     v.LookupPath(cue.ParsePath("tag")).Pos(),
		}
	}

	vrStr, err := requiredString(v, "vr")
	if err != nil {
		return dict.Attribute{}, err
	}
	attr.VR = dict.VR(vrStr)
	if !attr.VR.Known() {
		return dict.Attribute{}, &CompileError{
			Field:   "vr",
			Message: fmt.Sprintf("unknown value representation %q", vrStr),
			Pos:     v.LookupPath(cue.ParsePath("vr")).Pos(),
		}
	}

	kind, err := optionalString(v, "kind", KindStored)
	if err != nil {
		return dict.Attribute{}, err
	}
	attr.Kind, err = parseKind(kind, v)
	if err != nil {
		return dict.Attribute{}, err
	}

	level, err := optionalString(v, "level", "")
	if err != nil {
		return dict.Attribute{}, err
	}
	attr.Level = dict.Level(level)
	if attr.Kind == dict.KindBookkeeping {
		attr.Level = dict.LevelNone
	} else if !knownLevel(attr.Level) {
		return dict.Attribute{}, &CompileError{
			Field:   "level",
			Message: fmt.Sprintf("unknown level %q", level),
			Pos:     v.LookupPath(cue.ParsePath("level")).Pos(),
		}
	}

	return attr, nil
}

func parseKind(kind string, v cue.Value) (dict.Kind, error) {
	switch kind {
	case KindStored:
		return dict.KindStored, nil
	case KindSynthetic:
		return dict.KindSynthetic, nil
	case KindBookkeeping:
		return dict.KindBookkeeping, nil
	}
	return 0, &CompileError{
		Field:   "kind",
		Message: fmt.Sprintf("kind must be %q, %q or %q, got %q", KindStored, KindSynthetic, KindBookkeeping, kind),
		Pos:     v.LookupPath(cue.ParsePath("kind")).Pos(),
	}
}

func knownLevel(level dict.Level) bool {
	switch level {
	case dict.LevelPatient, dict.LevelStudy, dict.LevelSeries,
		dict.LevelConcatenation, dict.LevelInstance:
		return true
	}
	return false
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field, def string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with position info.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
