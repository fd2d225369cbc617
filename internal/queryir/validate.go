package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult lists structural problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each defect, in traversal order.
	Problems []string
}

// Err folds the problems into a single error, nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %s", strings.Join(r.Problems, "; "))
}

// Validate checks that a query can be compiled:
//  1. Explicit columns - no SELECT *
//  2. Every join has a condition
//  3. Column references are qualified
//  4. IN lists and OR groups are non-empty
//  5. Inserts pair columns with values; deletes carry a filter
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		problems: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil select")
			return
		}
		v.validateSelect(*query)
	case Insert:
		v.validateInsert(query)
	case Delete:
		if query.Table == "" {
			v.addProblem("delete from table with empty name")
		}
		if query.Filter == nil {
			v.addProblem("delete from %q without filter", query.Table)
		} else {
			v.validatePredicate(query.Filter)
		}
	case nil:
		v.addProblem("nil query")
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if len(sel.Columns) == 0 {
		v.addProblem("empty column list (SELECT *)")
	}
	for _, col := range sel.Columns {
		v.validateExpr(col)
	}
	if sel.From == nil {
		v.addProblem("missing FROM source")
	} else {
		v.validateSource(sel.From)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
	for _, o := range sel.OrderBy {
		v.validateExpr(o)
	}
}

func (v *validator) validateInsert(ins Insert) {
	if ins.Table == "" {
		v.addProblem("insert into table with empty name")
	}
	if len(ins.Columns) == 0 {
		v.addProblem("insert into %q without columns", ins.Table)
	}
	if len(ins.Columns) != len(ins.Values) {
		v.addProblem("insert into %q: %d columns, %d values", ins.Table, len(ins.Columns), len(ins.Values))
	}
}

func (v *validator) validateSource(s Source) {
	switch src := s.(type) {
	case Table:
		if src.Name == "" {
			v.addProblem("table with empty name")
		}
	case Join:
		v.validateSource(src.Left)
		v.validateSource(src.Right)
		if src.On == nil {
			v.addProblem("join of %q without condition", src.Right.Name)
		} else {
			v.validatePredicate(src.On)
		}
	default:
		v.addProblem("unknown source type: %T", s)
	}
}

func (v *validator) validateExpr(e Expr) {
	switch expr := e.(type) {
	case ColumnRef:
		v.validateColumn(expr)
	case Coalesce:
		if len(expr.Args) == 0 {
			v.addProblem("COALESCE without arguments")
		}
		for _, arg := range expr.Args {
			v.validateExpr(arg)
		}
	case CountAll:
	default:
		v.addProblem("unknown expression type: %T", e)
	}
}

func (v *validator) validateColumn(c ColumnRef) {
	if c.Table == "" || c.Column == "" {
		v.addProblem("unqualified column reference %q.%q", c.Table, c.Column)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateColumn(pred.Column)
		if pred.Value == nil {
			v.addProblem("column %s compared to NULL; use IsNull", pred.Column.Column)
		}
	case Compare:
		v.validateColumn(pred.Column)
		if pred.Op != GreaterOrEqual && pred.Op != LessOrEqual {
			v.addProblem("unsupported comparison %q", pred.Op)
		}
	case In:
		v.validateColumn(pred.Column)
		if len(pred.Values) == 0 {
			v.addProblem("empty IN list for %s", pred.Column.Column)
		}
	case Like:
		v.validateColumn(pred.Column)
	case IsNull:
		v.validateColumn(pred.Column)
	case NotNull:
		v.validateColumn(pred.Column)
	case ColumnEquals:
		v.validateColumn(pred.Left)
		v.validateExpr(pred.Right)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		if len(pred.Predicates) == 0 {
			v.addProblem("empty OR group")
		}
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case nil:
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}
