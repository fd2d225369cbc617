package store

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/dcmindex/internal/match"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/queryir"
	"github.com/roach88/dcmindex/internal/schema"
)

// FindRow returns the row of level with primary key key, or ErrNotFound.
func (s *Store) FindRow(ctx context.Context, level model.Level, key string) (Row, error) {
	rows, err := s.findWhere(ctx, "find_row", level, func(table string) queryir.Predicate {
		return queryir.Equals{Column: queryir.Col(table, schema.ColPrimaryKey), Value: key}
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %s: %w", level, key, ErrNotFound)
	}
	return rows[0], nil
}

// FindColumn returns one column of one row. A NULL column is nil.
func (s *Store) FindColumn(ctx context.Context, level model.Level, key, column string) (any, error) {
	if err := s.checkLevel(level); err != nil {
		return nil, err
	}
	table := schema.TableFor(level)
	if !s.Catalog().HasColumn(table, column) {
		return nil, fmt.Errorf("column %s.%s: %w", table, column, ErrNotFound)
	}
	row, err := s.FindRow(ctx, level, key)
	if err != nil {
		return nil, err
	}
	return row[normalizeColumn(column)], nil
}

// FindAll returns every row of level, ordered by primary key.
func (s *Store) FindAll(ctx context.Context, level model.Level) ([]Row, error) {
	return s.findWhere(ctx, "find_all", level, func(string) queryir.Predicate { return nil })
}

// FindAllByNaturalKey returns the rows of level whose unique key is value.
func (s *Store) FindAllByNaturalKey(ctx context.Context, level model.Level, value string) ([]Row, error) {
	col, err := s.naturalKeyColumn(level)
	if err != nil {
		return nil, err
	}
	return s.findWhere(ctx, "find_by_natural_key", level, func(table string) queryir.Predicate {
		return queryir.Equals{Column: queryir.Col(table, col), Value: value}
	})
}

// FindAllByParent returns the children of parent at level.
func (s *Store) FindAllByParent(ctx context.Context, level model.Level, parent string) ([]Row, error) {
	if level == model.RootLevel(s.model) {
		return nil, &Error{Code: ErrCodeModelMismatch, Message: fmt.Sprintf("level %s has no parent", level)}
	}
	return s.findWhere(ctx, "find_by_parent", level, func(table string) queryir.Predicate {
		return queryir.Equals{Column: queryir.Col(table, schema.ColParent), Value: parent}
	})
}

// FindAllByJoinedAncestorAttribute returns the rows of level whose
// ancestor at ancestor has column equal to value, e.g. every INSTANCE of
// the study with a given accession number.
func (s *Store) FindAllByJoinedAncestorAttribute(ctx context.Context, level, ancestor model.Level, column, value string) (rows []Row, err error) {
	ctx, finish := s.telemetry.Start(ctx, "find_by_ancestor",
		attribute.String("level", string(level)), attribute.String("ancestor", string(ancestor)))
	defer func() { finish(err) }()

	if err := s.checkLevel(level); err != nil {
		return nil, err
	}
	if err := s.checkLevel(ancestor); err != nil {
		return nil, err
	}
	if !model.Above(s.model, ancestor, level) {
		return nil, &Error{
			Code:    ErrCodeModelMismatch,
			Message: fmt.Sprintf("%s is not an ancestor of %s", ancestor, level),
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("find by ancestor attribute"); err != nil {
		return nil, err
	}

	ancestorTable := schema.TableFor(ancestor)
	if !s.catalog.HasColumn(ancestorTable, column) {
		return []Row{}, nil
	}
	table := schema.TableFor(level)
	columns := s.catalog.Columns(table)
	sel := queryir.Select{
		Columns: columnRefs(table, columns),
		From:    match.JoinChain(s.model, level),
		Filter:  queryir.Equals{Column: queryir.Col(ancestorTable, normalizeColumn(column)), Value: value},
		OrderBy: []queryir.Expr{queryir.Col(table, schema.ColPrimaryKey)},
	}
	rows, err = s.selectRows(ctx, s.db, sel, columns)
	if err != nil {
		return nil, unableToProcess("find by ancestor attribute", err)
	}
	return rows, nil
}

// findWhere selects every column of level's table filtered by the
// predicate built for it.
func (s *Store) findWhere(ctx context.Context, op string, level model.Level, filter func(table string) queryir.Predicate) (rows []Row, err error) {
	ctx, finish := s.telemetry.Start(ctx, op, attribute.String("level", string(level)))
	defer func() { finish(err) }()

	if err := s.checkLevel(level); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	table := schema.TableFor(level)
	columns := s.catalog.Columns(table)
	sel := queryir.Select{
		Columns: columnRefs(table, columns),
		From:    queryir.Table{Name: table},
		Filter:  filter(table),
		OrderBy: []queryir.Expr{queryir.Col(table, schema.ColPrimaryKey)},
	}
	rows, err = s.selectRows(ctx, s.db, sel, columns)
	if err != nil {
		return nil, unableToProcess(op, err)
	}
	return rows, nil
}

func columnRefs(table string, columns []string) []queryir.Expr {
	out := make([]queryir.Expr, len(columns))
	for i, c := range columns {
		out[i] = queryir.Col(table, c)
	}
	return out
}
