package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/dcmindex/internal/match"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/queryir"
	"github.com/roach88/dcmindex/internal/schema"
)

// ManifestEntry describes one stored object with the natural keys of the
// rows above it.
type ManifestEntry struct {
	Key string
	// UIDs maps each level with a row to its unique key value.
	UIDs              map[model.Level]string
	Path              string
	Reference         FileReference
	SOPClassUID       string
	TransferSyntaxUID string
	FileSize          int64
	InsertedAt        time.Time
}

// manifestColumn is one projected column and where it goes.
type manifestColumn struct {
	level  model.Level
	column string
}

// Manifest lists every leaf row, ordered by primary key.
func (s *Store) Manifest(ctx context.Context) (entries []ManifestEntry, err error) {
	ctx, finish := s.telemetry.Start(ctx, "manifest")
	defer func() { finish(err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("manifest"); err != nil {
		return nil, err
	}

	leaf := model.Leaf(s.model)
	leafTable := schema.TableFor(leaf)

	var cols []manifestColumn
	add := func(level model.Level, column string) {
		if s.catalog.HasColumn(schema.TableFor(level), column) {
			cols = append(cols, manifestColumn{level: level, column: column})
		}
	}
	add(leaf, schema.ColPrimaryKey)
	for _, l := range model.Ancestors(s.model, leaf) {
		if a, ok := s.dict.ByTag(s.model.UniqueKey(l)); ok {
			add(l, a.Column())
		}
	}
	for _, c := range []string{
		schema.ColFile,
		schema.ColFileReferenceType,
		"SOPCLASSUID",
		"TRANSFERSYNTAXUID",
		model.ColFileSize,
		schema.ColInsertionTime,
	} {
		add(leaf, c)
	}

	exprs := make([]queryir.Expr, len(cols))
	for i, c := range cols {
		exprs[i] = queryir.Col(schema.TableFor(c.level), c.column)
	}
	rows, err := s.run(ctx, s.db, queryir.Select{
		Columns: exprs,
		From:    match.JoinChain(s.model, leaf),
		OrderBy: []queryir.Expr{queryir.Col(leafTable, schema.ColPrimaryKey)},
	})
	if err != nil {
		return nil, unableToProcess("manifest", err)
	}
	defer rows.Close()

	entries = []ManifestEntry{}
	for rows.Next() {
		vals, err := scanValues(rows, len(cols))
		if err != nil {
			return nil, unableToProcess("manifest: scan", err)
		}
		e := ManifestEntry{UIDs: map[model.Level]string{}}
		for i, c := range cols {
			r := Row{c.column: vals[i]}
			if c.level != leaf || !isLeafColumn(c.column) {
				if v := r.String(c.column); v != "" {
					e.UIDs[c.level] = v
				}
				continue
			}
			switch c.column {
			case schema.ColPrimaryKey:
				e.Key = r.String(c.column)
			case schema.ColFile:
				e.Path = r.String(c.column)
			case schema.ColFileReferenceType:
				e.Reference = FileReference(r.String(c.column))
			case "SOPCLASSUID":
				e.SOPClassUID = r.String(c.column)
			case "TRANSFERSYNTAXUID":
				e.TransferSyntaxUID = r.String(c.column)
			case model.ColFileSize:
				e.FileSize, _ = r.Int(c.column)
			case schema.ColInsertionTime:
				if ms, ok := r.Int(c.column); ok {
					e.InsertedAt = time.UnixMilli(ms).UTC()
				}
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unableToProcess("manifest: iterate", err)
	}
	return entries, nil
}

func isLeafColumn(column string) bool {
	switch column {
	case schema.ColPrimaryKey, schema.ColFile, schema.ColFileReferenceType,
		"SOPCLASSUID", "TRANSFERSYNTAXUID", model.ColFileSize, schema.ColInsertionTime:
		return true
	}
	return false
}

// Counts returns the number of rows per level.
func (s *Store) Counts(ctx context.Context) (map[model.Level]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("count"); err != nil {
		return nil, err
	}

	out := make(map[model.Level]int, len(s.model.Levels()))
	for _, l := range s.model.Levels() {
		table := schema.TableFor(l)
		n, err := s.queryStrings(ctx, s.db, queryir.Select{
			Columns: []queryir.Expr{queryir.CountAll{}},
			From:    queryir.Table{Name: table},
		})
		if err != nil {
			return nil, unableToProcess("count "+table, err)
		}
		if out[l], err = parseCount(n); err != nil {
			return nil, unableToProcess("count "+table, err)
		}
	}
	return out, nil
}

// parseCount reads the single COUNT(*) value of a result; no row is zero.
func parseCount(vals []string) (int, error) {
	if len(vals) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		return 0, fmt.Errorf("malformed count %q: %w", vals[0], err)
	}
	return n, nil
}
