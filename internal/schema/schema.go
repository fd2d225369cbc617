// Package schema synthesizes and inspects the relational layout of the
// catalog: one table per entity level, one column per stored dictionary
// attribute, plus bookkeeping, search, derived and user columns.
//
// The schema is created lazily. Ensure creates every table when none of
// the level tables exists and otherwise leaves the database alone; columns
// are never dropped or renamed. Whatever exists is read into a Catalog,
// which the engine consults before referencing any column.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
)

// Ensure creates the schema if needed and returns the catalog.
// created reports whether tables were created.
func Ensure(ctx context.Context, db *sql.DB, dialect Dialect, m model.Model, d *dict.Dictionary, userColumns int) (cat *Catalog, created bool, err error) {
	existing, err := LoadCatalog(ctx, db, dialect)
	if err != nil {
		return nil, false, fmt.Errorf("inspect schema: %w", err)
	}

	var missing []string
	for _, level := range m.Levels() {
		if !existing.HasTable(TableFor(level)) {
			missing = append(missing, TableFor(level))
		}
	}

	switch {
	case len(missing) == 0:
		return existing, false, nil
	case len(missing) < len(m.Levels()):
		return nil, false, fmt.Errorf("incomplete schema for model %s: missing tables %s",
			m.Name(), strings.Join(missing, ", "))
	}

	stmts := DDL(BuildLayout(m, d, userColumns))
	if err := execAll(ctx, db, stmts); err != nil {
		return nil, false, err
	}
	slog.Info("schema created", "model", m.Name(), "tables", len(m.Levels()), "statements", len(stmts))

	cat, err = LoadCatalog(ctx, db, dialect)
	if err != nil {
		return nil, false, fmt.Errorf("inspect schema: %w", err)
	}
	return cat, true, nil
}

// execAll runs stmts in one transaction.
func execAll(ctx context.Context, db *sql.DB, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute %q: %w", firstLine(stmt), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// AddColumn widens table with one column and returns the refreshed
// catalog. Callers hold the write lock.
func AddColumn(ctx context.Context, db *sql.DB, dialect Dialect, cat *Catalog, table, column string, st dict.StorageType) (*Catalog, error) {
	if !cat.HasTable(table) {
		return nil, fmt.Errorf("no table %q", table)
	}
	if cat.HasColumn(table, column) {
		return cat, nil
	}
	if _, err := db.ExecContext(ctx, AddColumnDDL(table, column, st)); err != nil {
		return nil, fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	slog.Info("schema widened", "table", table, "column", column, "type", SQLType(st))
	return LoadCatalog(ctx, db, dialect)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
