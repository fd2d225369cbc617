package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/match"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/queryir"
	"github.com/roach88/dcmindex/internal/schema"
)

// Request is a query request; see match.Request.
type Request = match.Request

// Result is one matched row.
type Result struct {
	Level model.Level
	// Key is the primary key of the matched row.
	Key string
	// Keys holds the primary key of every joined level with a row.
	Keys map[model.Level]string
	// Attributes holds the returned attributes in DICOM string encoding.
	Attributes dict.AttributeSet
}

// Cursor iterates the rows of a query. It is not safe for concurrent use.
type Cursor struct {
	store *Store
	plan  *match.Plan
	rows  *sql.Rows
	width int

	started   bool
	unmatched bool
	closed    bool
}

// OpenQuery plans req and runs its join. The returned cursor must be
// closed.
func (s *Store) OpenQuery(ctx context.Context, req Request) (c *Cursor, err error) {
	ctx, finish := s.telemetry.Start(ctx, "query",
		attribute.String("level", string(req.Level)), attribute.Bool("relational", req.Relational))
	defer func() { finish(err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("query"); err != nil {
		return nil, err
	}

	plan, err := s.planner(s.catalog).PlanQuery(req)
	if err != nil {
		return nil, planError(err)
	}
	rows, err := s.run(ctx, s.db, plan.Query)
	if err != nil {
		return nil, unableToProcess("query", err)
	}
	return &Cursor{store: s, plan: plan, rows: rows, width: len(plan.Query.Columns)}, nil
}

// Next returns the next matching row; ok is false at the end.
func (c *Cursor) Next(ctx context.Context) (*Result, bool, error) {
	if c.closed {
		return nil, false, fmt.Errorf("cursor closed")
	}
	for c.rows.Next() {
		vals, err := scanValues(c.rows, c.width)
		if err != nil {
			return nil, false, unableToProcess("query: scan", err)
		}
		res, keep, err := c.mapRow(ctx, vals)
		if err != nil {
			return nil, false, err
		}
		if !keep {
			continue
		}
		if !c.started {
			c.started = true
			c.unmatched = len(c.plan.Unmatched) > 0
		}
		return res, true, nil
	}
	if err := c.rows.Err(); err != nil {
		return nil, false, unableToProcess("query: iterate", err)
	}
	return nil, false, nil
}

// UnmatchedOptionalKeysPresent reports whether the request carried
// attributes the catalog cannot match or return. It is false until the
// first row has been produced.
func (c *Cursor) UnmatchedOptionalKeysPresent() bool {
	return c.unmatched
}

// Unmatched lists the request attributes that were ignored.
func (c *Cursor) Unmatched() []dict.Tag {
	return append([]dict.Tag(nil), c.plan.Unmatched...)
}

// Close releases the result set. Closing twice is a no-op.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}

// mapRow turns one result row into a Result. keep is false when a
// requested computed value rules the row out.
func (c *Cursor) mapRow(ctx context.Context, vals []any) (*Result, bool, error) {
	res := &Result{
		Level:      c.plan.Level,
		Keys:       make(map[model.Level]string, len(c.plan.Chain)),
		Attributes: dict.AttributeSet{},
	}
	for i, l := range c.plan.Chain {
		if k, ok := vals[i].(string); ok {
			res.Keys[l] = k
		}
	}
	res.Key = res.Keys[c.plan.Level]

	for _, p := range c.plan.Projections {
		res.Attributes[p.Attribute.Tag] = FormatValue(p.Attribute, vals[p.Index])
	}
	for _, sr := range c.plan.Synthetics {
		key := res.Keys[sr.Def.Level]
		if key == "" {
			res.Attributes[sr.Attribute.Tag] = ""
			continue
		}
		values, err := c.store.aggregate(ctx, sr.Def, key)
		if err != nil {
			return nil, false, err
		}
		if sr.Def.Kind == model.DistinctValues && sr.Value != "" && !match.IsUniversal(sr.Value) && !intersects(values, dict.Values(sr.Value)) {
			return nil, false, nil
		}
		res.Attributes[sr.Attribute.Tag] = strings.Join(values, dict.ValueSeparator)
	}
	return res, true, nil
}

// aggregate computes a synthetic attribute for the row key of syn.Level.
// Concurrent cursors asking for the same value share one query.
func (s *Store) aggregate(ctx context.Context, syn model.Synthetic, key string) ([]string, error) {
	flightKey := syn.Tag.String() + "|" + string(syn.Level) + "|" + key
	v, err, _ := s.aggregates.Do(flightKey, func() (any, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.closed {
			return nil, ErrClosed
		}
		return s.computeAggregate(ctx, syn, key)
	})
	if err != nil {
		return nil, unableToProcess("aggregate "+syn.Tag.String(), err)
	}
	return v.([]string), nil
}

// computeAggregate runs the aggregate query. Callers hold mu.
func (s *Store) computeAggregate(ctx context.Context, syn model.Synthetic, key string) ([]string, error) {
	levelKey := queryir.Equals{Column: queryir.Col(schema.TableFor(syn.Level), schema.ColPrimaryKey), Value: key}
	from := match.JoinChain(s.model, syn.Of)

	switch syn.Kind {
	case model.CountDescendants:
		counts, err := s.queryStrings(ctx, s.db, queryir.Select{
			Columns: []queryir.Expr{queryir.CountAll{}},
			From:    from,
			Filter:  levelKey,
		})
		if err != nil {
			return nil, err
		}
		n := "0"
		if len(counts) > 0 {
			n = counts[0]
		}
		if _, err := strconv.ParseInt(n, 10, 64); err != nil {
			return nil, fmt.Errorf("count %s: %w", syn.Of, err)
		}
		return []string{n}, nil

	case model.DistinctValues:
		src, ok := s.dict.ByTag(syn.Source)
		table := schema.TableFor(syn.Of)
		if !ok || !s.catalog.HasColumn(table, src.Column()) {
			return []string{}, nil
		}
		col := queryir.Col(table, src.Column())
		values, err := s.queryStrings(ctx, s.db, queryir.Select{
			Columns:  []queryir.Expr{col},
			From:     from,
			Filter:   queryir.AllOf(levelKey, queryir.NotNull{Column: col}),
			Distinct: true,
		})
		if err != nil {
			return nil, err
		}
		if values == nil {
			values = []string{}
		}
		return values, nil

	default:
		return nil, fmt.Errorf("unknown aggregate kind %d", syn.Kind)
	}
}

func intersects(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, v := range have {
		set[v] = true
	}
	for _, v := range want {
		if set[v] {
			return true
		}
	}
	return false
}
