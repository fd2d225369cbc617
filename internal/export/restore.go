package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/schema"
	"github.com/roach88/dcmindex/internal/store"
)

// RestoreResult summarizes a Restore.
type RestoreResult struct {
	Objects int
	Created map[model.Level]int
	// Orphans are leaf rows whose ancestor chain is incomplete.
	Orphans int
}

// Restore re-ingests dumped records into st. Each leaf row is rebuilt into
// the attribute set of its object, from its own row and every ancestor row,
// and inserted with its file and reference type. Rows without a leaf below
// them are not restored.
func Restore(ctx context.Context, st *store.Store, records []Record) (*RestoreResult, error) {
	byKey := make(map[string]Record, len(records))
	for _, rec := range records {
		byKey[rec.Row.String(schema.ColPrimaryKey)] = rec
	}

	d := st.Dictionary()
	leaf := model.Leaf(st.Model())
	res := &RestoreResult{Created: map[model.Level]int{}}

	for _, rec := range records {
		if rec.Level != leaf {
			continue
		}
		attrs, ok := objectAttributes(d, byKey, rec)
		if !ok {
			res.Orphans++
			slog.Warn("restore: incomplete ancestor chain", "key", rec.Row.String(schema.ColPrimaryKey))
			continue
		}

		ref := store.FileReference(rec.Row.String(schema.ColFileReferenceType))
		ins, err := st.Insert(ctx, attrs, rec.Row.String(schema.ColFile), ref)
		if err != nil {
			return res, fmt.Errorf("restore %s: %w", rec.Row.String(schema.ColPrimaryKey), err)
		}
		res.Objects++
		for _, lk := range ins.Levels {
			if lk.Created {
				res.Created[lk.Level]++
			}
		}
	}
	return res, nil
}

// objectAttributes merges the attribute columns of rec and its ancestors.
func objectAttributes(d *dict.Dictionary, byKey map[string]Record, rec Record) (dict.AttributeSet, bool) {
	attrs := dict.AttributeSet{}
	seen := map[string]bool{}
	for {
		for column, v := range rec.Row {
			a, ok := d.ByColumn(column)
			if !ok || a.Storage() == dict.StorageNone || v == nil {
				continue
			}
			if s := store.FormatValue(a, v); s != "" {
				attrs[a.Tag] = s
			}
		}

		parent := rec.Row.String(schema.ColParent)
		if parent == "" {
			return attrs, true
		}
		if seen[parent] {
			return nil, false
		}
		seen[parent] = true
		next, ok := byKey[parent]
		if !ok {
			return nil, false
		}
		rec = next
	}
}
