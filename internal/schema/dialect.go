package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Dialect isolates the database-specific parts of schema management:
// connection setup, introspection and compaction. Statements built from
// QueryIR are shared by every dialect.
type Dialect interface {
	// Name is the configuration name, also the database/sql driver name.
	Name() string
	// DSN turns a configured location into a driver DSN.
	DSN(location string) string
	// Prepare applies database-level settings after connecting.
	Prepare(ctx context.Context, db *sql.DB) error
	// Tables lists the user tables.
	Tables(ctx context.Context, q Querier) ([]string, error)
	// Columns lists the columns of table.
	Columns(ctx context.Context, q Querier, table string) ([]string, error)
	// Compact runs the shutdown-time maintenance.
	Compact(ctx context.Context, db *sql.DB) error
}

// Dialect names.
const (
	SQLiteName = "sqlite3"
	DuckDBName = "duckdb"
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", SQLiteName, "sqlite":
		return SQLite{}, nil
	case DuckDBName:
		return DuckDB{}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", name)
	}
}

// SQLite is the default embedded dialect.
type SQLite struct{}

func (SQLite) Name() string { return SQLiteName }

// DSN adds the per-connection pragmas as driver parameters so every
// pooled connection gets them:
//   - 5-second busy timeout for lock contention
//   - NORMAL synchronous mode (balance durability/performance)
//   - Foreign key enforcement
//   - Case-sensitive LIKE, matching exact value semantics
//   - Timestamps read back in UTC
func (SQLite) DSN(location string) string {
	params := []string{
		"_busy_timeout=5000",
		"_synchronous=NORMAL",
		"_foreign_keys=on",
		"_case_sensitive_like=on",
		"_loc=UTC",
	}
	sep := "?"
	if strings.Contains(location, "?") {
		sep = "&"
	}
	return location + sep + strings.Join(params, "&")
}

// Prepare switches the database to WAL mode for concurrent readers.
func (SQLite) Prepare(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (SQLite) Tables(ctx context.Context, q Querier) ([]string, error) {
	return queryStrings(ctx, q,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite%' ORDER BY name")
}

func (SQLite) Columns(ctx context.Context, q Querier, table string) ([]string, error) {
	return queryStrings(ctx, q, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
}

// Compact refreshes planner statistics and truncates the WAL.
func (SQLite) Compact(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{"PRAGMA optimize", "PRAGMA wal_checkpoint(TRUNCATE)"} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// DuckDB is the columnar embedded dialect.
type DuckDB struct{}

func (DuckDB) Name() string { return DuckDBName }

func (DuckDB) DSN(location string) string { return location }

func (DuckDB) Prepare(ctx context.Context, db *sql.DB) error { return nil }

func (DuckDB) Tables(ctx context.Context, q Querier) ([]string, error) {
	return queryStrings(ctx, q,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name")
}

func (DuckDB) Columns(ctx context.Context, q Querier, table string) ([]string, error) {
	return queryStrings(ctx, q,
		"SELECT column_name FROM information_schema.columns WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position",
		table)
}

// Compact flushes the write-ahead log into the database file.
func (DuckDB) Compact(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("CHECKPOINT: %w", err)
	}
	return nil
}

func queryStrings(ctx context.Context, q Querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
