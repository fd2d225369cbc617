package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/dcmindex/internal/queryir"
	"github.com/roach88/dcmindex/internal/querysql"
	"github.com/roach88/dcmindex/internal/schema"
)

// Row is one table row, column name to value. Values are nil, string,
// int64, float64 or time.Time.
type Row map[string]any

// String returns the value of column as text, "" when NULL.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value of column as an integer.
func (r Row) Int(column string) (int64, bool) {
	switch v := r[column].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// normalize turns a driver value into one of the Row value types.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

// run compiles q and runs it on db. Callers hold mu.
func (s *Store) run(ctx context.Context, db schema.Querier, q queryir.Query) (*sql.Rows, error) {
	sqlText, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	logStatement(ctx, sqlText, params)
	return db.QueryContext(ctx, sqlText, params...)
}

// exec compiles q and executes it on db. Callers hold mu.
func (s *Store) exec(ctx context.Context, db schema.Querier, q queryir.Query) (sql.Result, error) {
	sqlText, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	logStatement(ctx, sqlText, params)
	return db.ExecContext(ctx, sqlText, params...)
}

func logStatement(ctx context.Context, sqlText string, params []any) {
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.DebugContext(ctx, "statement", "sql", querysql.Explain(sqlText, params))
	}
}

// scanValues scans the current row into normalized values.
func scanValues(rows *sql.Rows, n int) ([]any, error) {
	vals := make([]any, n)
	ptrs := make([]any, n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range vals {
		vals[i] = normalize(v)
	}
	return vals, nil
}

// selectRows runs sel, whose columns are the given column names of one
// table, and maps every result row. Callers hold mu.
func (s *Store) selectRows(ctx context.Context, db schema.Querier, sel queryir.Select, columns []string) ([]Row, error) {
	rows, err := s.run(ctx, db, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		vals, err := scanValues(rows, len(columns))
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(Row, len(columns))
		for i, c := range columns {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}

	// Return empty slice instead of nil
	if out == nil {
		out = []Row{}
	}
	return out, nil
}

// queryStrings runs q and returns the non-NULL values of its first
// column as text. Callers hold mu.
func (s *Store) queryStrings(ctx context.Context, db schema.Querier, q queryir.Query) ([]string, error) {
	rows, err := s.run(ctx, db, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if v.Valid {
			out = append(out, v.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

// normalizeColumn maps a column name onto its catalog spelling.
func normalizeColumn(column string) string {
	return strings.ToUpper(column)
}
