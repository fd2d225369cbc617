package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/queryir"
	"github.com/roach88/dcmindex/internal/schema"
)

// keyChunk bounds the IN lists used to walk a subtree.
const keyChunk = 500

// DeleteResult summarises a cascading delete.
type DeleteResult struct {
	// Rows is the number of rows removed, across levels.
	Rows int
	// Files lists the copied files removed from disk.
	Files []string
}

// DeleteRow removes one row. Children and files are left alone.
func (s *Store) DeleteRow(ctx context.Context, level model.Level, key string) (err error) {
	ctx, finish := s.telemetry.Start(ctx, "delete_row", attribute.String("level", string(level)))
	defer func() { finish(err) }()

	if err := s.checkLevel(level); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("delete row"); err != nil {
		return err
	}

	table := schema.TableFor(level)
	res, err := s.exec(ctx, s.db, queryir.Delete{
		Table:  table,
		Filter: queryir.Equals{Column: queryir.Col(table, schema.ColPrimaryKey), Value: key},
	})
	if err != nil {
		return unableToProcess("delete row", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.telemetry.RowsDeleted(string(level), int(n))
	}
	return nil
}

// DeleteSubtree removes a row, every descendant row and the copied files
// of the deleted leaf rows. Rows go bottom-up in one transaction; files
// are removed once it commits, and failures to remove them are logged.
// Referenced files are never touched.
func (s *Store) DeleteSubtree(ctx context.Context, level model.Level, key string) (res *DeleteResult, err error) {
	ctx, finish := s.telemetry.Start(ctx, "delete_subtree", attribute.String("level", string(level)))
	defer func() { finish(err) }()

	if err := s.checkLevel(level); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("delete subtree"); err != nil {
		return nil, err
	}

	return s.deleteSubtrees(ctx, level, []string{key})
}

// DeleteSubtreeByNaturalKey resolves the rows of level whose unique key
// equals value and deletes each subtree.
func (s *Store) DeleteSubtreeByNaturalKey(ctx context.Context, level model.Level, value string) (res *DeleteResult, err error) {
	ctx, finish := s.telemetry.Start(ctx, "delete_natural_key", attribute.String("level", string(level)))
	defer func() { finish(err) }()

	col, err := s.naturalKeyColumn(level)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("delete by natural key"); err != nil {
		return nil, err
	}

	table := schema.TableFor(level)
	keys, err := s.queryStrings(ctx, s.db, queryir.Select{
		Columns: []queryir.Expr{queryir.Col(table, schema.ColPrimaryKey)},
		From:    queryir.Table{Name: table},
		Filter:  queryir.Equals{Column: queryir.Col(table, col), Value: value},
	})
	if err != nil {
		return nil, unableToProcess("resolve natural key", err)
	}
	if len(keys) == 0 {
		return &DeleteResult{Files: []string{}}, nil
	}
	return s.deleteSubtrees(ctx, level, keys)
}

// deleteSubtrees does the work of DeleteSubtree. Callers hold mu.
func (s *Store) deleteSubtrees(ctx context.Context, level model.Level, keys []string) (*DeleteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unableToProcess("delete: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	// Collect the subtree top-down.
	byLevel := map[model.Level][]string{level: keys}
	order := []model.Level{level}
	for i := 0; i < len(order); i++ {
		parentTable := schema.TableFor(order[i])
		for _, child := range s.model.ChildLevels(order[i]) {
			found, err := s.childKeys(ctx, tx, child, byLevel[order[i]])
			if err != nil {
				return nil, unableToProcess("collect "+string(child)+" under "+parentTable, err)
			}
			if len(found) == 0 {
				continue
			}
			if _, seen := byLevel[child]; !seen {
				order = append(order, child)
			}
			byLevel[child] = append(byLevel[child], found...)
		}
	}

	leaf := model.Leaf(s.model)
	var files []string
	if leafKeys := byLevel[leaf]; len(leafKeys) > 0 {
		files, err = s.copiedFiles(ctx, tx, leafKeys)
		if err != nil {
			return nil, unableToProcess("collect files", err)
		}
	}

	// Delete bottom-up: deepest level first.
	res := &DeleteResult{}
	deleted := map[model.Level]int{}
	levels := s.model.Levels()
	for i := len(levels) - 1; i >= 0; i-- {
		l := levels[i]
		if len(byLevel[l]) == 0 {
			continue
		}
		n, err := s.deleteKeys(ctx, tx, l, byLevel[l])
		if err != nil {
			return nil, unableToProcess("delete "+string(l), err)
		}
		deleted[l] = n
		res.Rows += n
	}

	if err := tx.Commit(); err != nil {
		return nil, unableToProcess("delete: commit", err)
	}
	for l, n := range deleted {
		s.telemetry.RowsDeleted(string(l), n)
	}

	res.Files = []string{}
	for _, f := range files {
		if err := s.removeFile(f); err != nil {
			slog.Warn("failed to remove copied file", "path", f, "error", err)
			continue
		}
		res.Files = append(res.Files, f)
	}
	slog.Debug("subtree deleted", "level", level, "rows", res.Rows, "files", len(res.Files))
	return res, nil
}

// childKeys returns the keys of rows of child whose parent is in parents.
func (s *Store) childKeys(ctx context.Context, tx *sql.Tx, child model.Level, parents []string) ([]string, error) {
	table := schema.TableFor(child)
	var out []string
	for _, chunk := range chunks(parents) {
		keys, err := s.queryStrings(ctx, tx, queryir.Select{
			Columns: []queryir.Expr{queryir.Col(table, schema.ColPrimaryKey)},
			From:    queryir.Table{Name: table},
			Filter:  queryir.In{Column: queryir.Col(table, schema.ColParent), Values: anyStrings(chunk)},
		})
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
	}
	return out, nil
}

// copiedFiles returns the files of the given leaf rows the catalog owns.
func (s *Store) copiedFiles(ctx context.Context, tx *sql.Tx, keys []string) ([]string, error) {
	table := schema.TableFor(model.Leaf(s.model))
	var out []string
	for _, chunk := range chunks(keys) {
		files, err := s.queryStrings(ctx, tx, queryir.Select{
			Columns: []queryir.Expr{queryir.Col(table, schema.ColFile)},
			From:    queryir.Table{Name: table},
			Filter: queryir.AllOf(
				queryir.In{Column: queryir.Col(table, schema.ColPrimaryKey), Values: anyStrings(chunk)},
				queryir.Equals{Column: queryir.Col(table, schema.ColFileReferenceType), Value: string(Copied)},
			),
		})
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f != "" {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func (s *Store) deleteKeys(ctx context.Context, tx *sql.Tx, level model.Level, keys []string) (int, error) {
	table := schema.TableFor(level)
	total := 0
	for _, chunk := range chunks(keys) {
		res, err := s.exec(ctx, tx, queryir.Delete{
			Table:  table,
			Filter: queryir.In{Column: queryir.Col(table, schema.ColPrimaryKey), Values: anyStrings(chunk)},
		})
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		total += int(n)
	}
	return total, nil
}

func chunks(keys []string) [][]string {
	var out [][]string
	for len(keys) > keyChunk {
		out = append(out, keys[:keyChunk])
		keys = keys[keyChunk:]
	}
	if len(keys) > 0 {
		out = append(out, keys)
	}
	return out
}

func anyStrings(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
