package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/querysql"
)

// Mandatory bookkeeping columns.
const (
	ColPrimaryKey        = "LOCAL_PRIMARY_KEY"
	ColParent            = "LOCAL_PARENT_REFERENCE"
	ColInsertionTime     = "INSERTION_TIME"
	ColFile              = "LOCAL_FILE"
	ColFileReferenceType = "LOCAL_FILE_REFERENCE_TYPE"
)

// DefaultUserColumns is the number of USER_n columns per table.
const DefaultUserColumns = 4

// TableFor returns the table backing level.
func TableFor(level model.Level) string {
	return string(level)
}

// CanonColumn names the canonical search column of a person-name column.
func CanonColumn(column string) string {
	return "CANON_" + column
}

// PhoneticColumn names the phonetic search column of a person-name column.
func PhoneticColumn(column string) string {
	return "PHONETIC_" + column
}

// UserColumn names the n-th (1-based) user column.
func UserColumn(n int) string {
	return fmt.Sprintf("USER_%d", n)
}

// SQLType returns the column type for a storage type. The names are
// understood by both SQLite (via type affinity) and DuckDB.
func SQLType(st dict.StorageType) string {
	switch st {
	case dict.StorageInteger:
		return "BIGINT"
	case dict.StorageReal:
		return "DOUBLE"
	case dict.StorageTimestamp:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

// ColumnDef is one column of a synthesized table.
type ColumnDef struct {
	Name string
	Type string
}

// TableDef is a synthesized table with its indexed columns.
type TableDef struct {
	Level   model.Level
	Name    string
	Columns []ColumnDef
	Indexed []string
}

// Layout describes every table of a catalog.
type Layout struct {
	Tables  []TableDef
	Indexes []model.Index
}

// AttributesFor returns the stored attributes whose column lives in the
// table of level, honouring the model's level resolution.
func AttributesFor(m model.Model, d *dict.Dictionary, level model.Level) []dict.Attribute {
	var out []dict.Attribute
	for _, a := range d.All() {
		if a.Storage() == dict.StorageNone {
			continue
		}
		if m.Resolve(a.Level) == level {
			out = append(out, a)
		}
	}
	return out
}

// BuildLayout derives the table layout from a model and dictionary.
func BuildLayout(m model.Model, d *dict.Dictionary, userColumns int) Layout {
	var layout Layout
	root, leaf := model.RootLevel(m), model.Leaf(m)

	for _, level := range m.Levels() {
		t := TableDef{Level: level, Name: TableFor(level)}
		add := func(name string, typ string) {
			t.Columns = append(t.Columns, ColumnDef{Name: name, Type: typ})
		}

		add(ColPrimaryKey, "VARCHAR PRIMARY KEY")
		if level != root {
			add(ColParent, "VARCHAR")
			t.Indexed = append(t.Indexed, ColParent)
		}
		add(ColInsertionTime, "BIGINT")
		if level == leaf {
			add(ColFile, "VARCHAR")
			add(ColFileReferenceType, "CHAR(1)")
		}

		for _, a := range AttributesFor(m, d, level) {
			add(a.Column(), SQLType(a.Storage()))
			if a.VR == dict.VR_PN {
				add(CanonColumn(a.Column()), "VARCHAR")
				add(PhoneticColumn(a.Column()), "VARCHAR")
				t.Indexed = append(t.Indexed, CanonColumn(a.Column()), PhoneticColumn(a.Column()))
			}
		}
		for _, dc := range m.DerivedColumns(level) {
			add(dc.Name, SQLType(dc.Storage))
		}
		for _, ec := range m.ExtraColumns(level) {
			add(ec.Name, SQLType(ec.Storage))
		}
		for i := 1; i <= userColumns; i++ {
			add(UserColumn(i), "VARCHAR")
		}
		layout.Tables = append(layout.Tables, t)
	}

	for _, idx := range m.ExtraIndexes() {
		if layout.has(idx.Level, idx.Column) {
			layout.Indexes = append(layout.Indexes, idx)
		}
	}
	return layout
}

func (l Layout) has(level model.Level, column string) bool {
	for _, t := range l.Tables {
		if t.Level != level {
			continue
		}
		for _, c := range t.Columns {
			if c.Name == column {
				return true
			}
		}
	}
	return false
}

// DDL returns the statements creating the layout, in execution order.
// The output is deterministic.
func DDL(layout Layout) []string {
	var stmts []string
	for _, t := range layout.Tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = "  " + querysql.QuoteIdent(c.Name) + " " + c.Type
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (\n%s\n)",
			querysql.QuoteIdent(t.Name), strings.Join(cols, ",\n")))
		for _, col := range t.Indexed {
			stmts = append(stmts, createIndex(t.Name, col))
		}
	}
	for _, idx := range layout.Indexes {
		stmts = append(stmts, createIndex(TableFor(idx.Level), idx.Column))
	}
	return stmts
}

func createIndex(table, column string) string {
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		querysql.QuoteIdent("IDX_"+table+"_"+column),
		querysql.QuoteIdent(table),
		querysql.QuoteIdent(column))
}

// AddColumnDDL returns the statement widening table by one column.
func AddColumnDDL(table, column string, st dict.StorageType) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		querysql.QuoteIdent(table), querysql.QuoteIdent(column), SQLType(st))
}
