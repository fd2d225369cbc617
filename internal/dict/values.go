package dict

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueSeparator separates the values of a multi-valued attribute.
const ValueSeparator = `\`

// AttributeSet holds the attributes of one object or one request, each in
// its DICOM string encoding. An empty string is a present-but-empty value.
type AttributeSet map[Tag]string

// Get returns the value for t and whether it was present.
func (s AttributeSet) Get(t Tag) (string, bool) {
	v, ok := s[t]
	return v, ok
}

// Value returns the cleaned value for t, "" when absent.
func (s AttributeSet) Value(t Tag) string {
	return Clean(s[t])
}

// Has reports whether t is present with a non-empty value.
func (s AttributeSet) Has(t Tag) bool {
	return Clean(s[t]) != ""
}

// Tags returns the tags in ascending order.
func (s AttributeSet) Tags() []Tag {
	tags := make([]Tag, 0, len(s))
	for t := range s {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Less(tags[j]) })
	return tags
}

// Clone returns a shallow copy.
func (s AttributeSet) Clone() AttributeSet {
	out := make(AttributeSet, len(s))
	for t, v := range s {
		out[t] = v
	}
	return out
}

// Clean strips padding (spaces and NUL) from a raw value.
func Clean(v string) string {
	return strings.Trim(v, " \x00")
}

// Values splits a multi-valued attribute into its cleaned components.
func Values(v string) []string {
	v = Clean(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ValueSeparator)
	for i, p := range parts {
		parts[i] = Clean(p)
	}
	return parts
}

// FirstValue returns the first component of a multi-valued attribute.
func FirstValue(v string) string {
	vals := Values(v)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Coerce converts a raw value into a storable column value for attr.
// ok is false when the value is absent or cannot be represented; the
// column is then stored or matched as NULL.
func Coerce(attr Attribute, raw string) (value any, ok bool) {
	switch attr.Storage() {
	case StorageText:
		v := Clean(raw)
		if v == "" {
			return nil, false
		}
		return v, true
	case StorageInteger:
		return ParseInteger(FirstValue(raw))
	case StorageReal:
		return ParseReal(FirstValue(raw))
	case StorageTimestamp:
		ts, err := ParseDateTime(FirstValue(raw))
		if err != nil {
			return nil, false
		}
		return ts, true
	default:
		return nil, false
	}
}

// ParseInteger parses an IS/US/UL-style value. IS values may carry a sign
// and surrounding spaces.
func ParseInteger(v string) (any, bool) {
	v = strings.TrimPrefix(Clean(v), "+")
	if v == "" {
		return nil, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}

// ParseReal parses a DS/FL/FD value. NaN and infinities are rejected.
func ParseReal(v string) (any, bool) {
	v = Clean(v)
	if v == "" {
		return nil, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}
