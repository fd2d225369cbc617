package match

import (
	"fmt"

	"github.com/roach88/dcmindex/internal/dict"
)

// MismatchError reports a request whose shape does not fit the model: a
// missing or wildcarded above-level unique key, or an unknown level.
type MismatchError struct {
	// Attribute is the keyword (or tag) of the offending attribute.
	Attribute string
	Level     dict.Level
	Reason    string
}

func (e *MismatchError) Error() string {
	if e.Level != "" {
		return fmt.Sprintf("identifier does not match requested model: %s at %s: %s", e.Attribute, e.Level, e.Reason)
	}
	return fmt.Sprintf("identifier does not match requested model: %s: %s", e.Attribute, e.Reason)
}

func mismatch(d *dict.Dictionary, t dict.Tag, level dict.Level, reason string) *MismatchError {
	name := t.String()
	if a, ok := d.ByTag(t); ok {
		name = a.Keyword
	}
	return &MismatchError{Attribute: name, Level: level, Reason: reason}
}
