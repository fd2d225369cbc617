package store

import (
	"fmt"
	"strings"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/schema"
)

// TableNameFor returns the table backing level.
func (s *Store) TableNameFor(level model.Level) (string, error) {
	if err := s.checkLevel(level); err != nil {
		return "", err
	}
	return schema.TableFor(level), nil
}

// ColumnNameFor returns the level and column storing tag. ok is false when
// the tag is unknown, not materialized, or its column is missing from the
// catalog.
func (s *Store) ColumnNameFor(tag dict.Tag) (level model.Level, column string, ok bool) {
	level, column, ok = s.dict.ColumnFor(tag)
	if !ok {
		return "", "", false
	}
	level = s.model.Resolve(level)
	if !s.Catalog().HasColumn(schema.TableFor(level), column) {
		return "", "", false
	}
	return level, column, true
}

// AttributeIDFor maps a column name back to its attribute tag. Search
// columns of person names map to the name attribute.
func (s *Store) AttributeIDFor(column string) (dict.Tag, bool) {
	if a, ok := s.dict.ByColumn(column); ok {
		return a.Tag, true
	}
	for _, prefix := range []string{schema.CanonColumn(""), schema.PhoneticColumn("")} {
		if base, found := strings.CutPrefix(strings.ToUpper(column), prefix); found {
			if a, ok := s.dict.ByColumn(base); ok {
				return a.Tag, true
			}
		}
	}
	return dict.Tag{}, false
}

// DescriptiveColumnsFor returns up to three columns summarising a row of
// level, for labels and sorting.
func (s *Store) DescriptiveColumnsFor(level model.Level) ([]string, error) {
	if err := s.checkLevel(level); err != nil {
		return nil, err
	}
	cat := s.Catalog()
	table := schema.TableFor(level)
	out := []string{}
	for _, tag := range s.model.DescriptiveKeys(level) {
		a, ok := s.dict.ByTag(tag)
		if !ok || !cat.HasColumn(table, a.Column()) {
			continue
		}
		out = append(out, a.Column())
		if len(out) == 3 {
			break
		}
	}
	return out, nil
}

// NaturalKeyColumnFor returns the column holding the unique key of level.
func (s *Store) NaturalKeyColumnFor(level model.Level) (string, error) {
	return s.naturalKeyColumn(level)
}

func (s *Store) naturalKeyColumn(level model.Level) (string, error) {
	if err := s.checkLevel(level); err != nil {
		return "", err
	}
	a, ok := s.dict.ByTag(s.model.UniqueKey(level))
	if !ok || !s.Catalog().HasColumn(schema.TableFor(level), a.Column()) {
		return "", &Error{
			Code:    ErrCodeModelMismatch,
			Message: fmt.Sprintf("level %s has no natural key column", level),
		}
	}
	return a.Column(), nil
}

// checkLevel rejects levels outside the model.
func (s *Store) checkLevel(level model.Level) error {
	if !s.model.Has(level) {
		return &Error{
			Code:      ErrCodeModelMismatch,
			Message:   fmt.Sprintf("unknown level %q for model %s", level, s.model.Name()),
			Attribute: "QueryRetrieveLevel",
		}
	}
	return nil
}
