package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/match"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/pname"
	"github.com/roach88/dcmindex/internal/queryir"
	"github.com/roach88/dcmindex/internal/schema"
)

// FileReference says who owns a leaf row's file.
type FileReference string

const (
	// Copied files belong to the catalog and are deleted with their row.
	Copied FileReference = "C"
	// Referenced files are never deleted by the catalog.
	Referenced FileReference = "R"
)

// ParseFileReference parses "copied"/"C" or "referenced"/"R".
func ParseFileReference(s string) (FileReference, error) {
	switch s {
	case "C", "c", "copied":
		return Copied, nil
	case "R", "r", "referenced":
		return Referenced, nil
	default:
		return "", fmt.Errorf("unknown file reference type %q", s)
	}
}

// LevelKey is the row ingestion used at one level.
type LevelKey struct {
	Level   model.Level
	Key     string
	Created bool
}

// InsertResult lists the row used at each level, root first.
type InsertResult struct {
	Levels []LevelKey
}

// Key returns the primary key used at level, "" if the level was skipped.
func (r *InsertResult) Key(level model.Level) string {
	for _, lk := range r.Levels {
		if lk.Level == level {
			return lk.Key
		}
	}
	return ""
}

// Created reports how many rows were created.
func (r *InsertResult) Created() int {
	n := 0
	for _, lk := range r.Levels {
		if lk.Created {
			n++
		}
	}
	return n
}

// Insert files one object: walking from the root, each level reuses the
// single row matching its keys under the current parent, or creates one.
// Existing rows are never updated.
//
// Keys are matched exact-or-null, so an object lacking an optional key
// coalesces into the existing row that lacks it too.
func (s *Store) Insert(ctx context.Context, attrs dict.AttributeSet, file string, ref FileReference) (res *InsertResult, err error) {
	ctx, finish := s.telemetry.Start(ctx, "insert", attribute.String("file", file))
	defer func() { finish(err) }()

	if ref == "" {
		ref = Copied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("insert"); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unableToProcess("insert: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	res = &InsertResult{}
	level, parent := model.RootLevel(s.model), ""
	for {
		key, created, err := s.findOrCreate(ctx, tx, level, parent, attrs, file, ref)
		if err != nil {
			return nil, unableToProcess("insert "+string(level), err)
		}
		res.Levels = append(res.Levels, LevelKey{Level: level, Key: key, Created: created})

		child, ok := s.model.ChildFor(level, attrs)
		if !ok {
			break
		}
		level, parent = child, key
	}

	if err := tx.Commit(); err != nil {
		return nil, unableToProcess("insert: commit", err)
	}
	for _, lk := range res.Levels {
		if lk.Created {
			s.telemetry.RowCreated(string(lk.Level))
		}
	}
	slog.Debug("object ingested", "file", file, "created", res.Created())
	return res, nil
}

// findOrCreate returns the key of the row matching attrs at level, creating
// one unless exactly one row matches.
func (s *Store) findOrCreate(ctx context.Context, tx *sql.Tx, level model.Level, parent string, attrs dict.AttributeSet, file string, ref FileReference) (string, bool, error) {
	table := schema.TableFor(level)

	keys, err := s.queryStrings(ctx, tx, queryir.Select{
		Columns: []queryir.Expr{queryir.Col(table, schema.ColPrimaryKey)},
		From:    queryir.Table{Name: table},
		Filter:  s.matchClause(level, parent, attrs),
	})
	if err != nil {
		return "", false, fmt.Errorf("lookup: %w", err)
	}
	if len(keys) == 1 {
		return keys[0], false, nil
	}
	if len(keys) > 1 {
		slog.Debug("ambiguous match, creating row", "level", level, "matches", len(keys))
	}

	key := s.keys.Generate()
	cols, vals := s.rowValues(level, key, parent, attrs, file, ref)
	if _, err := s.exec(ctx, tx, queryir.Insert{Table: table, Columns: cols, Values: vals}); err != nil {
		return "", false, fmt.Errorf("create: %w", err)
	}
	return key, true, nil
}

// matchClause identifies a row of level: parent reference plus every match
// key, exact-or-null.
func (s *Store) matchClause(level model.Level, parent string, attrs dict.AttributeSet) queryir.Predicate {
	table := schema.TableFor(level)
	var preds []queryir.Predicate
	if parent != "" {
		preds = append(preds, queryir.Equals{Column: queryir.Col(table, schema.ColParent), Value: parent})
	}
	for _, tag := range s.model.MatchKeys(level) {
		a, ok := s.dict.ByTag(tag)
		if !ok || !s.catalog.HasColumn(table, a.Column()) {
			continue
		}
		preds = append(preds, match.ExactOrNull(table, a, attrs))
	}
	return queryir.AllOf(preds...)
}

// rowValues assembles the columns of a new row: mandatory, dictionary,
// person-name search, derived and extra columns. Columns missing from the
// catalog are skipped.
func (s *Store) rowValues(level model.Level, key, parent string, attrs dict.AttributeSet, file string, ref FileReference) ([]string, []any) {
	table := schema.TableFor(level)
	var cols []string
	var vals []any
	add := func(col string, v any) {
		if s.catalog.HasColumn(table, col) {
			cols = append(cols, col)
			vals = append(vals, v)
		}
	}

	add(schema.ColPrimaryKey, key)
	if parent != "" {
		add(schema.ColParent, parent)
	}
	add(schema.ColInsertionTime, s.now().UnixMilli())
	leaf := level == model.Leaf(s.model)
	if leaf {
		add(schema.ColFile, file)
		add(schema.ColFileReferenceType, string(ref))
	}

	for _, a := range schema.AttributesFor(s.model, s.dict, level) {
		raw, ok := attrs.Get(a.Tag)
		if !ok {
			continue
		}
		v, ok := match.StoredValue(a, raw)
		if !ok {
			continue
		}
		add(a.Column(), v)
		if a.VR == dict.VR_PN {
			if canon := pname.Canonical(raw); canon != "" {
				add(schema.CanonColumn(a.Column()), canon)
			}
			if phonetic := pname.Phonetic(raw); phonetic != "" {
				add(schema.PhoneticColumn(a.Column()), phonetic)
			}
		}
	}

	for _, d := range s.model.DerivedColumns(level) {
		if v, ok := d.Compute(attrs); ok {
			add(d.Name, v)
		}
	}
	if leaf {
		for _, c := range s.model.ExtraColumns(level) {
			if v, ok := fileColumn(c, file); ok {
				add(c.Name, v)
			}
		}
	}
	return cols, vals
}

// fileColumn computes an extra column from the stored file.
func fileColumn(c model.Column, file string) (any, bool) {
	if file == "" {
		return nil, false
	}
	switch c.Name {
	case model.ColFileSize:
		info, err := os.Stat(file)
		if err != nil {
			return nil, false
		}
		return info.Size(), true
	default:
		return nil, false
	}
}
