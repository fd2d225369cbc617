package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dcmindex/internal/dict"
)

// Error codes reported by the loader.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeMerge       = "E007" // Conflicting dictionary entries

	ErrCodeTag   = "E101" // Missing or malformed tag
	ErrCodeVR    = "E102" // Missing or unknown VR
	ErrCodeLevel = "E103" // Unknown level
	ErrCodeKind  = "E104" // Unknown kind
)

// LoadError represents an error that occurred while loading a dictionary.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadAttributes compiles every attribute declared in the CUE package in
// dir. All compile errors are collected; the attributes that compiled are
// returned alongside them.
func LoadAttributes(dir string) ([]dict.Attribute, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("dictionary directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing dictionary directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	return CompileAttributes(value)
}

// CompileAttributes compiles every field under "attribute" in v.
func CompileAttributes(v cue.Value) ([]dict.Attribute, []error) {
	attrsVal := v.LookupPath(cue.ParsePath("attribute"))
	if !attrsVal.Exists() {
		return []dict.Attribute{}, nil
	}

	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating attributes: %v", err)}}
	}

	attrs := []dict.Attribute{}
	var errs []error
	for iter.Next() {
		attr, err := CompileAttribute(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "attribute."+iter.Selector().String()))
			continue
		}
		attrs = append(attrs, attr)
	}
	return attrs, errs
}

// LoadDictionary loads the attributes in dir and merges them over base.
// An empty dir returns base unchanged.
func LoadDictionary(dir string, base *dict.Dictionary) (*dict.Dictionary, error) {
	if base == nil {
		base = dict.Default()
	}
	if dir == "" {
		return base, nil
	}

	attrs, errs := LoadAttributes(dir)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	merged, err := base.With(attrs...)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeMerge, Message: err.Error()}
	}
	slog.Debug("dictionary loaded", "dir", dir, "attributes", len(attrs), "total", merged.Len())
	return merged, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    codeForField(compileErr.Field),
			Message: context + ": " + compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

func codeForField(field string) string {
	switch field {
	case "tag":
		return ErrCodeTag
	case "vr":
		return ErrCodeVR
	case "level":
		return ErrCodeLevel
	case "kind":
		return ErrCodeKind
	default:
		return ErrCodeGeneric
	}
}
