package queryir

// Query represents an abstract query.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Source is a FROM clause: a table or a chain of joins.
type Source interface {
	sourceNode()
}

// Predicate represents a filter condition.
//
// Predicate types:
//   - Equals, Compare, In, Like: column against bound values
//   - IsNull / NotNull: exact-or-null matching of absent values
//   - ColumnEquals: join conditions between two tables
//   - And / Or: boolean composition
type Predicate interface {
	predicateNode()
}

// Expr is a value expression usable in a select list or join condition.
type Expr interface {
	exprNode()
}

// Select represents a table access with filtering.
//
// Semantics:
//
//	SELECT [DISTINCT] <columns> FROM <from> WHERE <filter> ORDER BY <order>
//
// Example:
//
//	Select{
//	  Columns: []Expr{Col("SERIES", "MODALITY")},
//	  From: Join{
//	    Kind:  InnerJoin,
//	    Left:  Table{Name: "SERIES"},
//	    Right: Table{Name: "STUDY"},
//	    On:    ColumnEquals{Left: Col("STUDY", "LOCAL_PRIMARY_KEY"), Right: Col("SERIES", "LOCAL_PARENT_REFERENCE")},
//	  },
//	  Filter: Equals{Column: Col("STUDY", "STUDYINSTANCEUID"), Value: "1.2.3"},
//	}
//
// Translates to SQL:
//
//	SELECT "SERIES"."MODALITY" FROM "SERIES"
//	JOIN "STUDY" ON "STUDY"."LOCAL_PRIMARY_KEY" = "SERIES"."LOCAL_PARENT_REFERENCE"
//	WHERE "STUDY"."STUDYINSTANCEUID" = ?
//
// Columns must be explicit (no SELECT *). When OrderBy is empty the
// compiler orders by the first column.
type Select struct {
	Columns  []Expr
	From     Source
	Filter   Predicate // nil = no filter
	Distinct bool
	OrderBy  []Expr
}

func (Select) queryNode() {}

// Insert adds one row.
//
//	INSERT INTO <table> (<columns>) VALUES (?, ...)
type Insert struct {
	Table   string
	Columns []string
	Values  []any
}

func (Insert) queryNode() {}

// Delete removes the rows of one table matching a filter. A filter is
// required; there is no unconditional delete.
type Delete struct {
	Table  string
	Filter Predicate
}

func (Delete) queryNode() {}

// Table is a base table source.
type Table struct {
	Name string
}

func (Table) sourceNode() {}

// JoinKind selects inner or left outer join semantics.
type JoinKind int

const (
	// InnerJoin keeps rows with a partner on both sides.
	InnerJoin JoinKind = iota
	// LeftJoin keeps left rows without a partner; right columns are NULL.
	// Used for optional hierarchy levels.
	LeftJoin
)

// Join combines a source with one more table.
//
// Chains are left-deep: Join{Left: Join{...}, Right: Table{...}}.
type Join struct {
	Kind  JoinKind
	Left  Source
	Right Table
	On    Predicate // required
}

func (Join) sourceNode() {}

// ColumnRef names a qualified column.
type ColumnRef struct {
	Table  string
	Column string
}

func (ColumnRef) exprNode() {}

// Col is shorthand for ColumnRef{Table: table, Column: column}.
func Col(table, column string) ColumnRef {
	return ColumnRef{Table: table, Column: column}
}

// Coalesce returns its first non-NULL argument.
type Coalesce struct {
	Args []Expr
}

func (Coalesce) exprNode() {}

// CountAll counts result rows.
type CountAll struct{}

func (CountAll) exprNode() {}

// Equals is column = value.
//
// NULLs never equal anything; use IsNull for exact-or-null matching.
type Equals struct {
	Column ColumnRef
	Value  any
}

func (Equals) predicateNode() {}

// CompareOp is an ordering comparison.
type CompareOp string

const (
	GreaterOrEqual CompareOp = ">="
	LessOrEqual    CompareOp = "<="
)

// Compare is column <op> value.
type Compare struct {
	Column ColumnRef
	Op     CompareOp
	Value  any
}

func (Compare) predicateNode() {}

// In is column IN (values...).
type In struct {
	Column ColumnRef
	Values []any
}

func (In) predicateNode() {}

// LikeEscape is the escape character used by every Like predicate.
const LikeEscape = `\`

// Like is column LIKE pattern ESCAPE '\'.
// The pattern is already translated to SQL wildcards.
type Like struct {
	Column  ColumnRef
	Pattern string
}

func (Like) predicateNode() {}

// IsNull is column IS NULL.
type IsNull struct {
	Column ColumnRef
}

func (IsNull) predicateNode() {}

// NotNull is column IS NOT NULL.
type NotNull struct {
	Column ColumnRef
}

func (NotNull) predicateNode() {}

// ColumnEquals compares a column with another expression, for joins.
type ColumnEquals struct {
	Left  ColumnRef
	Right Expr
}

func (ColumnEquals) predicateNode() {}

// And requires every predicate (empty = always true).
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or requires at least one predicate (empty = always false).
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// AllOf builds an And, dropping nil entries and unwrapping single items.
func AllOf(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}

// AnyOf builds an Or, unwrapping single items.
func AnyOf(preds ...Predicate) Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	return Or{Predicates: preds}
}
