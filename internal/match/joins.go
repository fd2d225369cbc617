package match

import (
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/queryir"
	"github.com/roach88/dcmindex/internal/schema"
)

// JoinChain joins from level up through every ancestor to the root.
//
// Each ancestor is joined on its primary key equal to the child's parent
// reference. An optional level is LEFT JOINed, and because a child may
// hang directly below the next non-optional ancestor, that ancestor is
// joined on COALESCE(optional.parent, child.parent).
func JoinChain(m model.Model, level model.Level) queryir.Source {
	var src queryir.Source = queryir.Table{Name: schema.TableFor(level)}
	refs := []queryir.Expr{queryir.Col(schema.TableFor(level), schema.ColParent)}

	chain := model.Ancestors(m, level)
	for _, ancestor := range chain[1:] {
		table := schema.TableFor(ancestor)
		on := queryir.ColumnEquals{
			Left:  queryir.Col(table, schema.ColPrimaryKey),
			Right: coalesce(refs),
		}
		if m.Optional(ancestor) {
			src = queryir.Join{Kind: queryir.LeftJoin, Left: src, Right: queryir.Table{Name: table}, On: on}
			refs = append([]queryir.Expr{queryir.Col(table, schema.ColParent)}, refs...)
			continue
		}
		src = queryir.Join{Kind: queryir.InnerJoin, Left: src, Right: queryir.Table{Name: table}, On: on}
		refs = []queryir.Expr{queryir.Col(table, schema.ColParent)}
	}
	return src
}

func coalesce(refs []queryir.Expr) queryir.Expr {
	if len(refs) == 1 {
		return refs[0]
	}
	return queryir.Coalesce{Args: refs}
}
