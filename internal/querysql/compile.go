package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/dcmindex/internal/queryir"
)

// SQLCompiler compiles QueryIR to parameterized SQL.
//
// The output is accepted by both SQLite and DuckDB: identifiers are double
// quoted, placeholders are "?", and LIKE always carries ESCAPE '\'.
//
// CRITICAL: All values are parameterized (never interpolated).
// CRITICAL: Every SELECT has an ORDER BY so result order is stable.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Insert:
		return c.compileInsert(query)
	case queryir.Delete:
		return c.compileDelete(query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a queryir.Select to SQL.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	cols := make([]string, 0, len(q.Columns))
	for _, col := range q.Columns {
		sql, err := c.compileExpr(col)
		if err != nil {
			return "", nil, fmt.Errorf("compile column: %w", err)
		}
		cols = append(cols, sql)
	}

	fromClause, params, err := c.compileSource(q.From)
	if err != nil {
		return "", nil, fmt.Errorf("compile from: %w", err)
	}

	var whereClause string
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = append(params, filterParams...)
	}

	orderByClause, err := c.stableOrderKey(q)
	if err != nil {
		return "", nil, err
	}

	distinct := ""
	if q.Distinct {
		distinct = "DISTINCT "
	}

	sql := fmt.Sprintf("SELECT %s%s FROM %s%s%s",
		distinct,
		strings.Join(cols, ", "),
		fromClause,
		whereClause,
		orderByClause)

	return sql, params, nil
}

// stableOrderKey returns the ORDER BY clause for a query.
// Explicit OrderBy wins; otherwise the first column orders the rows.
// Pure aggregates have a single row and need no ordering.
func (c *SQLCompiler) stableOrderKey(q queryir.Select) (string, error) {
	keys := q.OrderBy
	if len(keys) == 0 {
		if _, isCount := q.Columns[0].(queryir.CountAll); isCount {
			return "", nil
		}
		keys = q.Columns[:1]
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		sql, err := c.compileExpr(k)
		if err != nil {
			return "", fmt.Errorf("compile order key: %w", err)
		}
		parts = append(parts, sql+" ASC")
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// compileInsert compiles a queryir.Insert to "INSERT INTO t (...) VALUES (?, ...)".
func (c *SQLCompiler) compileInsert(q queryir.Insert) (string, []any, error) {
	cols := make([]string, len(q.Columns))
	marks := make([]string, len(q.Columns))
	for i, col := range q.Columns {
		cols[i] = QuoteIdent(col)
		marks[i] = "?"
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(q.Table),
		strings.Join(cols, ", "),
		strings.Join(marks, ", "))
	return sql, append([]any(nil), q.Values...), nil
}

// compileDelete compiles a queryir.Delete to "DELETE FROM t WHERE ...".
func (c *SQLCompiler) compileDelete(q queryir.Delete) (string, []any, error) {
	filterSQL, params, err := c.compilePredicate(q.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", QuoteIdent(q.Table), filterSQL), params, nil
}

// compileSource compiles a table or join chain.
func (c *SQLCompiler) compileSource(s queryir.Source) (string, []any, error) {
	switch src := s.(type) {
	case queryir.Table:
		return QuoteIdent(src.Name), nil, nil
	case queryir.Join:
		left, params, err := c.compileSource(src.Left)
		if err != nil {
			return "", nil, err
		}
		on, onParams, err := c.compilePredicate(src.On)
		if err != nil {
			return "", nil, fmt.Errorf("compile join condition: %w", err)
		}
		keyword := "JOIN"
		if src.Kind == queryir.LeftJoin {
			keyword = "LEFT JOIN"
		}
		sql := fmt.Sprintf("%s %s %s ON %s", left, keyword, QuoteIdent(src.Right.Name), on)
		return sql, append(params, onParams...), nil
	default:
		return "", nil, fmt.Errorf("unsupported source type: %T", s)
	}
}

// compileExpr compiles a value expression. Expressions never carry values.
func (c *SQLCompiler) compileExpr(e queryir.Expr) (string, error) {
	switch expr := e.(type) {
	case queryir.ColumnRef:
		return qualified(expr), nil
	case queryir.Coalesce:
		args := make([]string, 0, len(expr.Args))
		for _, a := range expr.Args {
			sql, err := c.compileExpr(a)
			if err != nil {
				return "", err
			}
			args = append(args, sql)
		}
		return "COALESCE(" + strings.Join(args, ", ") + ")", nil
	case queryir.CountAll:
		return "COUNT(*)", nil
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

// compilePredicate compiles a queryir.Predicate to a WHERE clause fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return qualified(pred.Column) + " = ?", []any{pred.Value}, nil
	case queryir.Compare:
		return fmt.Sprintf("%s %s ?", qualified(pred.Column), pred.Op), []any{pred.Value}, nil
	case queryir.In:
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(pred.Values)), ", ")
		return fmt.Sprintf("%s IN (%s)", qualified(pred.Column), marks), append([]any(nil), pred.Values...), nil
	case queryir.Like:
		return fmt.Sprintf("%s LIKE ? ESCAPE '%s'", qualified(pred.Column), queryir.LikeEscape), []any{pred.Pattern}, nil
	case queryir.IsNull:
		return qualified(pred.Column) + " IS NULL", nil, nil
	case queryir.NotNull:
		return qualified(pred.Column) + " IS NOT NULL", nil, nil
	case queryir.ColumnEquals:
		right, err := c.compileExpr(pred.Right)
		if err != nil {
			return "", nil, err
		}
		return qualified(pred.Left) + " = " + right, nil, nil
	case queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1", false)
	case queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "1 = 0", true)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileJunction joins sub-predicates. OR groups are parenthesised so
// they bind correctly inside an enclosing AND.
func (c *SQLCompiler) compileJunction(preds []queryir.Predicate, sep, empty string, paren bool) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range preds {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	sql := strings.Join(sqlParts, sep)
	if paren && len(sqlParts) > 1 {
		sql = "(" + sql + ")"
	}
	return sql, allParams, nil
}

// QuoteIdent double-quotes an identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func qualified(c queryir.ColumnRef) string {
	return QuoteIdent(c.Table) + "." + QuoteIdent(c.Column)
}
