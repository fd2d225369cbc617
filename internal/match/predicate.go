package match

import (
	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/pname"
	"github.com/roach88/dcmindex/internal/queryir"
	"github.com/roach88/dcmindex/internal/schema"
)

// Columns reports which columns exist. *schema.Catalog satisfies it.
type Columns interface {
	HasColumn(table, column string) bool
}

// Builder builds the filter predicate for one attribute value.
type Builder struct {
	Columns Columns
	// PersonNames enables canonical and phonetic name matching.
	PersonNames bool
}

// Filter returns the predicate matching value against the column of attr
// in table, or nil when the value matches everything.
func (b Builder) Filter(table string, attr dict.Attribute, value string) queryir.Predicate {
	value = dict.Clean(value)
	if IsUniversal(value) {
		return nil
	}
	col := queryir.Col(table, attr.Column())

	switch attr.Storage() {
	case dict.StorageNone:
		return nil
	case dict.StorageInteger, dict.StorageReal:
		return numeric(col, attr, value)
	}

	// Date and time columns hold normalized values that a pattern cannot
	// address, so a wildcard there matches everything.
	if attr.VR.IsRange() {
		if HasWildcard(value) {
			return nil
		}
		if p, ok := RangePredicate(col, attr.VR, value); ok {
			return p
		}
		return nil
	}

	if attr.VR == dict.VR_PN && b.PersonNames &&
		b.Columns.HasColumn(table, schema.CanonColumn(attr.Column())) &&
		b.Columns.HasColumn(table, schema.PhoneticColumn(attr.Column())) {
		return personName(table, attr.Column(), value)
	}

	if attr.VR == dict.VR_UI {
		if vals := dict.Values(value); len(vals) > 1 {
			return queryir.In{Column: col, Values: anySlice(vals)}
		}
	}
	return text(col, value)
}

func text(col queryir.ColumnRef, value string) queryir.Predicate {
	if HasWildcard(value) {
		return queryir.Like{Column: col, Pattern: LikePattern(value)}
	}
	return queryir.Equals{Column: col, Value: value}
}

// numeric matches the coerced value. Wildcards and unconvertible values
// cannot constrain a numeric column, so they match everything.
func numeric(col queryir.ColumnRef, attr dict.Attribute, value string) queryir.Predicate {
	if HasWildcard(value) {
		return nil
	}
	var vals []any
	for _, raw := range dict.Values(value) {
		if v, ok := dict.Coerce(attr, raw); ok {
			vals = append(vals, v)
		}
	}
	switch len(vals) {
	case 0:
		return nil
	case 1:
		return queryir.Equals{Column: col, Value: vals[0]}
	default:
		return queryir.In{Column: col, Values: vals}
	}
}

// personName ORs every technique: any one succeeding matches the row.
//
// Without wildcards: the phonetic form and its swapped variant against
// PHONETIC_<col>, the canonical form and its swapped variant against
// CANON_<col>, and the raw value against <col>. With wildcards the
// phonetic arm is dropped and the other two use LIKE.
func personName(table, column, value string) queryir.Predicate {
	raw := queryir.Col(table, column)
	canonCol := queryir.Col(table, schema.CanonColumn(column))
	phoneticCol := queryir.Col(table, schema.PhoneticColumn(column))

	canon := pname.Canonical(value)
	canonForms := variants(canon)

	var arms []queryir.Predicate
	if pname.HasWildcard(value) {
		for _, c := range canonForms {
			arms = append(arms, queryir.Like{Column: canonCol, Pattern: LikePattern(c)})
		}
		arms = append(arms, queryir.Like{Column: raw, Pattern: LikePattern(value)})
		return queryir.AnyOf(arms...)
	}

	if phonetic := pname.Phonetic(value); phonetic != "" {
		arms = append(arms, oneOf(phoneticCol, variants(phonetic)))
	}
	if len(canonForms) > 0 {
		arms = append(arms, oneOf(canonCol, canonForms))
	}
	arms = append(arms, queryir.Equals{Column: raw, Value: value})
	return queryir.AnyOf(arms...)
}

// variants returns v and its family/given swap, skipping empties.
func variants(v string) []string {
	if v == "" {
		return nil
	}
	if swapped, ok := pname.Swap(v); ok && swapped != v {
		return []string{v, swapped}
	}
	return []string{v}
}

func oneOf(col queryir.ColumnRef, vals []string) queryir.Predicate {
	if len(vals) == 1 {
		return queryir.Equals{Column: col, Value: vals[0]}
	}
	return queryir.In{Column: col, Values: anySlice(vals)}
}

func anySlice(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// ExactOrNull matches a key column for find-or-create: equality when the
// object supplies a storable value, IS NULL otherwise. "col = NULL" never
// matches, so objects lacking an optional key would each create a row.
func ExactOrNull(table string, attr dict.Attribute, attrs dict.AttributeSet) queryir.Predicate {
	col := queryir.Col(table, attr.Column())
	if v, ok := StoredValue(attr, attrs.Value(attr.Tag)); ok {
		return queryir.Equals{Column: col, Value: v}
	}
	return queryir.IsNull{Column: col}
}

// StoredValue converts a raw value into what ingestion stores for attr.
// DA and TM values lose legacy separators so they compare as text.
func StoredValue(attr dict.Attribute, raw string) (any, bool) {
	switch attr.VR {
	case dict.VR_DA:
		raw = dict.NormalizeDate(raw)
	case dict.VR_TM:
		raw = dict.NormalizeTime(raw)
	}
	return dict.Coerce(attr, raw)
}
