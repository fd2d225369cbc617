package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Catalog is the in-memory view of which tables and columns exist.
// Every clause the engine builds is gated on it, so a database created
// with an older dictionary keeps working. A Catalog is immutable; schema
// widening builds a new one.
type Catalog struct {
	tables map[string]map[string]struct{}
}

// NewCatalog builds a catalog from table → columns.
func NewCatalog(tables map[string][]string) *Catalog {
	c := &Catalog{tables: make(map[string]map[string]struct{}, len(tables))}
	for t, cols := range tables {
		set := make(map[string]struct{}, len(cols))
		for _, col := range cols {
			set[strings.ToUpper(col)] = struct{}{}
		}
		c.tables[strings.ToUpper(t)] = set
	}
	return c
}

// LoadCatalog reads every table and column through the dialect.
func LoadCatalog(ctx context.Context, q Querier, dialect Dialect) (*Catalog, error) {
	tables, err := dialect.Tables(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	all := make(map[string][]string, len(tables))
	for _, t := range tables {
		cols, err := dialect.Columns(ctx, q, t)
		if err != nil {
			return nil, fmt.Errorf("list columns of %s: %w", t, err)
		}
		all[t] = cols
	}
	return NewCatalog(all), nil
}

// HasTable reports whether table exists.
func (c *Catalog) HasTable(table string) bool {
	_, ok := c.tables[strings.ToUpper(table)]
	return ok
}

// HasColumn reports whether table has column.
func (c *Catalog) HasColumn(table, column string) bool {
	cols, ok := c.tables[strings.ToUpper(table)]
	if !ok {
		return false
	}
	_, ok = cols[strings.ToUpper(column)]
	return ok
}

// Columns returns the columns of table, sorted.
func (c *Catalog) Columns(table string) []string {
	cols := c.tables[strings.ToUpper(table)]
	out := make([]string, 0, len(cols))
	for col := range cols {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

// Tables returns the table names, sorted.
func (c *Catalog) Tables() []string {
	out := make([]string, 0, len(c.tables))
	for t := range c.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
