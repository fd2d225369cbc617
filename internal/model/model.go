// Package model describes the entity hierarchy a catalog is built on.
//
// A Model is a capability interface: it names the levels, how they chain,
// which attributes identify a row at each level and which extra columns the
// schema carries. The schema manager, ingestion engine and query engine are
// all driven by it, so a new hierarchy is a new Model implementation rather
// than a change to the engine.
package model

import (
	"fmt"
	"strings"

	"github.com/roach88/dcmindex/internal/dict"
)

// Level is an entity level; see dict.Level.
type Level = dict.Level

// Entity levels.
const (
	Patient       = dict.LevelPatient
	Study         = dict.LevelStudy
	Series        = dict.LevelSeries
	Concatenation = dict.LevelConcatenation
	Instance      = dict.LevelInstance
)

// Root selects where hierarchical pinning starts.
type Root int

const (
	// RootPatient pins from the PATIENT level down.
	RootPatient Root = iota
	// RootStudy pins from the STUDY level down; patient attributes act as
	// study-level filters.
	RootStudy
)

func (r Root) String() string {
	if r == RootStudy {
		return "study"
	}
	return "patient"
}

// ParseRoot parses "patient" or "study".
func ParseRoot(s string) (Root, error) {
	switch strings.ToLower(s) {
	case "", "patient":
		return RootPatient, nil
	case "study":
		return RootStudy, nil
	default:
		return RootPatient, fmt.Errorf("unknown query root %q", s)
	}
}

// Column is an extra column a model adds to a level's table.
type Column struct {
	Name    string
	Storage dict.StorageType
}

// Index is an extra index a model declares.
type Index struct {
	Level  Level
	Column string
}

// DateTimePair links a DA and TM attribute to the derived column holding
// their combination. Requests carrying both are range-matched against it.
type DateTimePair struct {
	Date   dict.Tag
	Time   dict.Tag
	Column string
}

// DerivedFunc computes a derived column value from an object's
// attributes. ok is false when the value is absent.
type DerivedFunc func(attrs dict.AttributeSet) (value any, ok bool)

// Derived is a column computed at ingestion time.
type Derived struct {
	Column
	Compute DerivedFunc
}

// AggregateKind says how a synthetic attribute is computed.
type AggregateKind int

const (
	// CountDescendants counts rows of a descendant level.
	CountDescendants AggregateKind = iota
	// DistinctValues collects the distinct values of a descendant column.
	DistinctValues
)

// Synthetic describes a computed attribute.
type Synthetic struct {
	Tag   dict.Tag
	Level Level
	Kind  AggregateKind
	Of    Level
	// Column of Of whose distinct values are collected.
	Source dict.Tag
}

// Model is the hierarchy capability interface.
type Model interface {
	// Name identifies the model in configuration.
	Name() string
	// Levels lists the levels root first.
	Levels() []Level
	// Has reports whether level is part of the model.
	Has(level Level) bool
	// Resolve maps a dictionary level onto the model level storing it.
	Resolve(level Level) Level
	// Parent returns the parent level; ok is false at the root.
	Parent(level Level) (Level, bool)
	// Optional reports whether rows of level may be skipped in a chain.
	Optional(level Level) bool
	// ChildLevels lists every level that can be a child of level.
	ChildLevels(level Level) []Level
	// ChildFor picks the child level for an object's attributes; ok is
	// false when level is the leaf.
	ChildFor(level Level, attrs dict.AttributeSet) (Level, bool)
	// MatchKeys are the attributes identifying a row under its parent.
	MatchKeys(level Level) []dict.Tag
	// UniqueKey is the natural identifier of level.
	UniqueKey(level Level) dict.Tag
	// DescriptiveKeys are up to three attributes summarising a row.
	DescriptiveKeys(level Level) []dict.Tag
	// DerivedColumns are computed at ingestion.
	DerivedColumns(level Level) []Derived
	// ExtraColumns are filled from the stored file, not from attributes.
	ExtraColumns(level Level) []Column
	// ExtraIndexes index natural identifier columns.
	ExtraIndexes() []Index
	// DateTimePairs lists combined date/time columns of level.
	DateTimePairs(level Level) []DateTimePair
	// Synthetics lists the computed attributes the model supports.
	Synthetics() []Synthetic
}

// Leaf returns the last level of m.
func Leaf(m Model) Level {
	levels := m.Levels()
	return levels[len(levels)-1]
}

// RootLevel returns the first level of m.
func RootLevel(m Model) Level {
	return m.Levels()[0]
}

// IndexOf returns the position of level in m, -1 if absent.
func IndexOf(m Model, level Level) int {
	for i, l := range m.Levels() {
		if l == level {
			return i
		}
	}
	return -1
}

// Above reports whether a is strictly above b in m.
func Above(m Model, a, b Level) bool {
	ia, ib := IndexOf(m, a), IndexOf(m, b)
	return ia >= 0 && ib >= 0 && ia < ib
}

// Ancestors returns the chain from level up to the root, level first.
func Ancestors(m Model, level Level) []Level {
	chain := []Level{level}
	for {
		parent, ok := m.Parent(level)
		if !ok {
			return chain
		}
		chain = append(chain, parent)
		level = parent
	}
}

// Descendants returns every level strictly below level, nearest first.
func Descendants(m Model, level Level) []Level {
	idx := IndexOf(m, level)
	if idx < 0 {
		return nil
	}
	return append([]Level(nil), m.Levels()[idx+1:]...)
}

// ParseLevel parses a level name. IMAGE is accepted for INSTANCE.
func ParseLevel(m Model, name string) (Level, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "IMAGE" {
		name = string(Instance)
	}
	level := Level(name)
	if !m.Has(level) {
		return "", fmt.Errorf("unknown level %q for model %s", name, m.Name())
	}
	return level, nil
}

// ByName returns the model registered under name.
func ByName(name string) (Model, error) {
	switch strings.ToLower(name) {
	case "", StandardName:
		return Standard(), nil
	case ConcatenationName:
		return WithConcatenation(), nil
	default:
		return nil, fmt.Errorf("unknown model %q", name)
	}
}
