package dict

import (
	"fmt"
	"sort"
	"strings"
)

// Level names one tier of the entity hierarchy, e.g. "STUDY".
// Attributes are owned by exactly one level.
type Level string

// Entity levels the built-in dictionary assigns attributes to.
const (
	LevelNone          Level = ""
	LevelPatient       Level = "PATIENT"
	LevelStudy         Level = "STUDY"
	LevelSeries        Level = "SERIES"
	LevelConcatenation Level = "CONCATENATION"
	LevelInstance      Level = "INSTANCE"
)

// Kind distinguishes persisted attributes from computed and protocol ones.
type Kind int

const (
	// KindStored attributes are persisted in their level's table.
	KindStored Kind = iota
	// KindSynthetic attributes are computed at query time from descendants.
	KindSynthetic
	// KindBookkeeping attributes belong to the query protocol and are
	// never persisted, matched or projected.
	KindBookkeeping
)

// Attribute is one dictionary entry.
type Attribute struct {
	Tag     Tag
	Keyword string
	VR      VR
	Level   Level
	Kind    Kind
}

// Column returns the column name the attribute is stored under.
func (a Attribute) Column() string {
	return strings.ToUpper(a.Keyword)
}

// Storage returns the storage type, StorageNone for non-stored kinds.
func (a Attribute) Storage() StorageType {
	if a.Kind != KindStored {
		return StorageNone
	}
	return StorageTypeFor(a.VR)
}

// Dictionary is an immutable, validated attribute table.
type Dictionary struct {
	attrs     []Attribute
	byTag     map[Tag]int
	byKeyword map[string]int
	byColumn  map[string]int
}

// NewDictionary validates attrs and builds the lookup tables.
// Duplicate tags, duplicate keywords and empty keywords are rejected.
func NewDictionary(attrs ...Attribute) (*Dictionary, error) {
	d := &Dictionary{
		attrs:     make([]Attribute, 0, len(attrs)),
		byTag:     make(map[Tag]int, len(attrs)),
		byKeyword: make(map[string]int, len(attrs)),
		byColumn:  make(map[string]int, len(attrs)),
	}

	sorted := append([]Attribute(nil), attrs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Tag.Less(sorted[j].Tag)
	})

	for _, a := range sorted {
		if a.Keyword == "" {
			return nil, fmt.Errorf("attribute %s: empty keyword", a.Tag)
		}
		if _, dup := d.byTag[a.Tag]; dup {
			return nil, fmt.Errorf("attribute %s: duplicate tag", a.Tag)
		}
		if _, dup := d.byKeyword[a.Keyword]; dup {
			return nil, fmt.Errorf("attribute %s: duplicate keyword %q", a.Tag, a.Keyword)
		}
		if a.Kind != KindBookkeeping && a.Level == LevelNone {
			return nil, fmt.Errorf("attribute %s (%s): no owning level", a.Tag, a.Keyword)
		}
		idx := len(d.attrs)
		d.attrs = append(d.attrs, a)
		d.byTag[a.Tag] = idx
		d.byKeyword[a.Keyword] = idx
		d.byColumn[a.Column()] = idx
	}
	return d, nil
}

// MustNewDictionary is NewDictionary for static tables; it panics on error.
func MustNewDictionary(attrs ...Attribute) *Dictionary {
	d, err := NewDictionary(attrs...)
	if err != nil {
		panic(err)
	}
	return d
}

// With returns a new dictionary where extra entries replace entries with
// the same tag and are otherwise appended.
func (d *Dictionary) With(extra ...Attribute) (*Dictionary, error) {
	merged := make(map[Tag]Attribute, len(d.attrs)+len(extra))
	for _, a := range d.attrs {
		merged[a.Tag] = a
	}
	for _, a := range extra {
		merged[a.Tag] = a
	}
	all := make([]Attribute, 0, len(merged))
	for _, a := range merged {
		all = append(all, a)
	}
	return NewDictionary(all...)
}

// All returns every entry in tag order.
func (d *Dictionary) All() []Attribute {
	return append([]Attribute(nil), d.attrs...)
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.attrs)
}

// ByTag looks an attribute up by tag.
func (d *Dictionary) ByTag(t Tag) (Attribute, bool) {
	idx, ok := d.byTag[t]
	if !ok {
		return Attribute{}, false
	}
	return d.attrs[idx], true
}

// ByKeyword looks an attribute up by its keyword, e.g. "PatientName".
func (d *Dictionary) ByKeyword(keyword string) (Attribute, bool) {
	idx, ok := d.byKeyword[keyword]
	if !ok {
		return Attribute{}, false
	}
	return d.attrs[idx], true
}

// ByColumn looks an attribute up by its column name (case-insensitive).
func (d *Dictionary) ByColumn(column string) (Attribute, bool) {
	idx, ok := d.byColumn[strings.ToUpper(column)]
	if !ok {
		return Attribute{}, false
	}
	return d.attrs[idx], true
}

// Lookup resolves a tag string or a keyword.
func (d *Dictionary) Lookup(name string) (Attribute, bool) {
	if a, ok := d.ByKeyword(name); ok {
		return a, true
	}
	if t, err := ParseTag(name); err == nil {
		return d.ByTag(t)
	}
	return Attribute{}, false
}

// ForLevel returns the stored attributes of level that get a column.
func (d *Dictionary) ForLevel(level Level) []Attribute {
	var out []Attribute
	for _, a := range d.attrs {
		if a.Level == level && a.Storage() != StorageNone {
			out = append(out, a)
		}
	}
	return out
}

// Synthetics returns the attributes computed at query time.
func (d *Dictionary) Synthetics() []Attribute {
	var out []Attribute
	for _, a := range d.attrs {
		if a.Kind == KindSynthetic {
			out = append(out, a)
		}
	}
	return out
}

// ColumnFor returns the owning level and column of a stored attribute.
// ok is false when the attribute has no mapping; callers omit the column.
func (d *Dictionary) ColumnFor(t Tag) (level Level, column string, ok bool) {
	a, found := d.ByTag(t)
	if !found || a.Storage() == StorageNone {
		return LevelNone, "", false
	}
	return a.Level, a.Column(), true
}
