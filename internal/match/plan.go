package match

import (
	"fmt"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/queryir"
	"github.com/roach88/dcmindex/internal/schema"
)

// Request is a query: attribute values to match and return at Level.
type Request struct {
	Attributes dict.AttributeSet
	Level      model.Level
	// Relational turns every attribute into a non-mandatory filter.
	Relational bool
	Root       model.Root
}

// Projection is one returned attribute; its value is the Index-th column
// of the result row.
type Projection struct {
	Attribute dict.Attribute
	Level     model.Level
	Index     int
}

// SyntheticRequest is a computed attribute the cursor fills per row.
type SyntheticRequest struct {
	Attribute dict.Attribute
	Def       model.Synthetic
	// Value is the requested value; non-empty values filter rows.
	Value string
}

// Plan is a compiled-ready query with the mapping of its result columns.
//
// Result column 0 is the primary key of the target level; the keys of its
// ancestors follow, one per level of Chain after the first.
type Plan struct {
	Level       model.Level
	Chain       []model.Level
	Query       queryir.Select
	Projections []Projection
	Synthetics  []SyntheticRequest
	// Unmatched lists request attributes that cannot be projected.
	Unmatched []dict.Tag
}

// Planner plans queries and retrieves against one model and catalog.
type Planner struct {
	Model       model.Model
	Dictionary  *dict.Dictionary
	Columns     Columns
	PersonNames bool
}

func (p *Planner) builder() Builder {
	return Builder{Columns: p.Columns, PersonNames: p.PersonNames}
}

// pinStart is the highest level whose unique key hierarchical requests
// must supply.
func (p *Planner) pinStart(root model.Root) model.Level {
	if root == model.RootStudy && p.Model.Has(model.Study) {
		return model.Study
	}
	return model.RootLevel(p.Model)
}

// pinned reports whether level is pinned by its unique key rather than
// filtered, for a hierarchical request targeting target.
func (p *Planner) pinned(level, target model.Level, root model.Root) bool {
	start := model.IndexOf(p.Model, p.pinStart(root))
	return model.Above(p.Model, level, target) && model.IndexOf(p.Model, level) >= start
}

// checkLevel rejects unknown levels and levels above where the root
// starts pinning, e.g. PATIENT under a study root.
func (p *Planner) checkLevel(level model.Level, root model.Root) error {
	if !p.Model.Has(level) {
		return &MismatchError{Attribute: "QueryRetrieveLevel", Level: level, Reason: "unknown level"}
	}
	if start := p.pinStart(root); model.Above(p.Model, level, start) {
		return &MismatchError{
			Attribute: "QueryRetrieveLevel",
			Level:     level,
			Reason:    fmt.Sprintf("not a level of the %s root information model", root),
		}
	}
	return nil
}

// PlanQuery plans a query request.
func (p *Planner) PlanQuery(req Request) (*Plan, error) {
	if err := p.checkLevel(req.Level, req.Root); err != nil {
		return nil, err
	}
	m, d := p.Model, p.Dictionary
	chain := model.Ancestors(m, req.Level)
	inChain := make(map[model.Level]bool, len(chain))
	for _, l := range chain {
		inChain[l] = true
	}

	plan := &Plan{Level: req.Level, Chain: chain}
	var columns []queryir.Expr
	for _, l := range chain {
		columns = append(columns, queryir.Col(schema.TableFor(l), schema.ColPrimaryKey))
	}

	var filters []queryir.Predicate
	b := p.builder()

	isFilterLevel := func(l model.Level) bool {
		return req.Relational || !p.pinned(l, req.Level, req.Root)
	}

	// Date and time pairs are matched once against their combined column.
	consumed := make(map[dict.Tag]bool)
	for _, l := range chain {
		if !isFilterLevel(l) {
			continue
		}
		table := schema.TableFor(l)
		for _, pair := range m.DateTimePairs(l) {
			date, tm := req.Attributes.Value(pair.Date), req.Attributes.Value(pair.Time)
			if IsUniversal(date) || IsUniversal(tm) || HasWildcard(date) || HasWildcard(tm) {
				continue
			}
			if !p.Columns.HasColumn(table, pair.Column) {
				continue
			}
			if pred, ok := CombinedPredicate(queryir.Col(table, pair.Column), date, tm); ok {
				filters = append(filters, pred)
				consumed[pair.Date], consumed[pair.Time] = true, true
			}
		}
	}

	projected := make(map[dict.Tag]bool)
	project := func(a dict.Attribute, l model.Level) {
		if projected[a.Tag] {
			return
		}
		projected[a.Tag] = true
		plan.Projections = append(plan.Projections, Projection{Attribute: a, Level: l, Index: len(columns)})
		columns = append(columns, queryir.Col(schema.TableFor(l), a.Column()))
	}

	for _, tag := range req.Attributes.Tags() {
		value := req.Attributes.Value(tag)
		attr, ok := d.ByTag(tag)
		if !ok {
			plan.Unmatched = append(plan.Unmatched, tag)
			continue
		}
		if attr.Kind == dict.KindBookkeeping {
			continue
		}
		if attr.Kind == dict.KindSynthetic {
			if !p.planSynthetic(plan, attr, value, inChain, project) {
				plan.Unmatched = append(plan.Unmatched, tag)
			}
			continue
		}

		level := m.Resolve(attr.Level)
		table := schema.TableFor(level)
		if !inChain[level] || attr.Storage() == dict.StorageNone || !p.Columns.HasColumn(table, attr.Column()) {
			plan.Unmatched = append(plan.Unmatched, tag)
			continue
		}
		project(attr, level)

		if isFilterLevel(level) {
			if !consumed[tag] {
				filters = append(filters, b.Filter(table, attr, value))
			}
			continue
		}
		if tag != m.UniqueKey(level) {
			continue
		}
		pin, err := p.pin(attr, level, value)
		if err != nil {
			return nil, err
		}
		filters = append(filters, pin)
	}

	if !req.Relational {
		for _, l := range chain[1:] {
			if !p.pinned(l, req.Level, req.Root) || m.Optional(l) {
				continue
			}
			key := m.UniqueKey(l)
			if _, ok := req.Attributes.Get(key); !ok {
				return nil, mismatch(d, key, l, "unique key of a level above the query level is required")
			}
		}
	}

	// The target's own unique key is always returned.
	if key, ok := d.ByTag(m.UniqueKey(req.Level)); ok && p.Columns.HasColumn(schema.TableFor(req.Level), key.Column()) {
		project(key, req.Level)
	}

	plan.Query = queryir.Select{
		Columns: columns,
		From:    JoinChain(m, req.Level),
		Filter:  queryir.AllOf(filters...),
		OrderBy: []queryir.Expr{queryir.Col(schema.TableFor(req.Level), schema.ColPrimaryKey)},
	}
	return plan, nil
}

// pin builds the equality on an above-level unique key.
func (p *Planner) pin(attr dict.Attribute, level model.Level, value string) (queryir.Predicate, error) {
	switch {
	case IsUniversal(value):
		return nil, mismatch(p.Dictionary, attr.Tag, level, "empty unique key above the query level")
	case HasWildcard(value):
		return nil, mismatch(p.Dictionary, attr.Tag, level, "wildcard in unique key above the query level")
	case len(dict.Values(value)) > 1:
		return nil, mismatch(p.Dictionary, attr.Tag, level, "list in unique key above the query level")
	}
	v, ok := StoredValue(attr, value)
	if !ok {
		return nil, mismatch(p.Dictionary, attr.Tag, level, "unique key cannot be converted")
	}
	return queryir.Equals{Column: queryir.Col(schema.TableFor(level), attr.Column()), Value: v}, nil
}

// planSynthetic projects a native column when one exists, otherwise
// schedules the aggregate. It reports false when the attribute cannot be
// provided at all.
func (p *Planner) planSynthetic(plan *Plan, attr dict.Attribute, value string, inChain map[model.Level]bool, project func(dict.Attribute, model.Level)) bool {
	for _, syn := range p.Model.Synthetics() {
		if syn.Tag != attr.Tag || !inChain[syn.Level] || !p.Model.Has(syn.Of) {
			continue
		}
		if p.Columns.HasColumn(schema.TableFor(syn.Level), attr.Column()) {
			project(attr, syn.Level)
			return true
		}
		plan.Synthetics = append(plan.Synthetics, SyntheticRequest{Attribute: attr, Def: syn, Value: value})
		return true
	}
	return false
}

// RetrieveRequest names the exact keys of the objects to locate.
type RetrieveRequest struct {
	Keys  dict.AttributeSet
	Level model.Level
	Root  model.Root
}

// Leaf location columns, in result order.
var retrieveColumns = []string{
	schema.ColFile,
	schema.ColFileReferenceType,
	"SOPINSTANCEUID",
	"SOPCLASSUID",
	"TRANSFERSYNTAXUID",
}

// RetrievePlan is a retrieve join with the leaf columns it projects.
type RetrievePlan struct {
	Query queryir.Select
	// Columns lists the projected leaf columns; location columns the
	// catalog lacks are omitted.
	Columns []string
}

// PlanRetrieve plans a retrieve. Every non-optional level from the pin
// start down to the target must carry an exact unique key; the target
// may carry a UID list.
func (p *Planner) PlanRetrieve(req RetrieveRequest) (*RetrievePlan, error) {
	if err := p.checkLevel(req.Level, req.Root); err != nil {
		return nil, err
	}
	m, d := p.Model, p.Dictionary
	leaf := model.Leaf(m)
	leafTable := schema.TableFor(leaf)

	var filters []queryir.Predicate
	for _, l := range model.Ancestors(m, req.Level) {
		if model.Above(m, l, p.pinStart(req.Root)) {
			continue
		}
		key := m.UniqueKey(l)
		attr, ok := d.ByTag(key)
		if !ok {
			return nil, mismatch(d, key, l, "unique key missing from dictionary")
		}
		value := req.Keys.Value(key)
		if value == "" && m.Optional(l) {
			continue
		}
		if value == "" {
			return nil, mismatch(d, key, l, "exact unique key required")
		}
		if HasWildcard(value) {
			return nil, mismatch(d, key, l, "wildcard not allowed in retrieve key")
		}
		col := queryir.Col(schema.TableFor(l), attr.Column())
		if vals := dict.Values(value); len(vals) > 1 {
			if l != req.Level {
				return nil, mismatch(d, key, l, "list only allowed at the retrieve level")
			}
			filters = append(filters, queryir.In{Column: col, Values: anySlice(vals)})
			continue
		}
		filters = append(filters, queryir.Equals{Column: col, Value: value})
	}

	plan := &RetrievePlan{}
	exprs := []queryir.Expr{queryir.Col(leafTable, schema.ColPrimaryKey)}
	for _, c := range retrieveColumns {
		if p.Columns.HasColumn(leafTable, c) {
			plan.Columns = append(plan.Columns, c)
			exprs = append(exprs, queryir.Col(leafTable, c))
		}
	}
	plan.Query = queryir.Select{
		Columns: exprs,
		From:    JoinChain(m, leaf),
		Filter:  queryir.AllOf(filters...),
	}
	return plan, nil
}
