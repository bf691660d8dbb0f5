package core

// schema.go infers primary keys and cross-table links from raw tables.
//
// Primary key selection is positional: the leftmost column whose values are
// pairwise distinct wins, and the scan stops there. A table without such a
// column, or without rows, simply has no primary key.
//
// Two tables are linked when both keys share a column name and every key
// value of the child also appears in the parent. Links are advisory metadata
// for the relational synthesizer; nothing here enforces them.

import "fmt"

// InferSchema builds a Schema from tables given in order. It rejects the
// whole input with a *ConfigurationError when there are no tables, when a
// name repeats, or when any table has zero columns.
func InferSchema(tables []*Table) (*Schema, error) {
	if err := validateForInference(tables); err != nil {
		return nil, err
	}

	schema := &Schema{
		Tables:        make([]TableSchema, 0, len(tables)),
		Relationships: []Relationship{},
	}
	keySets := make([]map[string]struct{}, len(tables))

	for i, t := range tables {
		ts := TableSchema{
			Name:     t.Name,
			Columns:  append([]Column(nil), t.Columns...),
			RowCount: t.NumRows(),
		}

		if pk := PrimaryKeyCandidate(t); pk >= 0 {
			ts.PrimaryKey = t.Columns[pk].Name
			ts.Columns[pk].Kind = KindIdentifier
			ts.Columns[pk].Unique = true
			keySets[i] = valueSet(t.ColumnValues(pk))
		}

		schema.Tables = append(schema.Tables, ts)
	}

	schema.Relationships = inferRelationships(schema.Tables, keySets)
	return schema, nil
}

// PrimaryKeyCandidate returns the index of the leftmost fully-distinct
// column, or -1 when there is none. A table with zero rows has no candidate.
func PrimaryKeyCandidate(t *Table) int {
	if t.NumRows() == 0 {
		return -1
	}
	for i := range t.Columns {
		if allDistinct(t.ColumnValues(i)) {
			return i
		}
	}
	return -1
}

func validateForInference(tables []*Table) error {
	if len(tables) == 0 {
		return &ConfigurationError{Reason: "no tables given"}
	}
	seen := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		if t == nil {
			return &ConfigurationError{Reason: "nil table"}
		}
		if t.NumColumns() == 0 {
			return &ConfigurationError{Table: t.Name, Reason: "table has no columns"}
		}
		if _, dup := seen[t.Name]; dup {
			return &ConfigurationError{Table: t.Name, Reason: fmt.Sprintf("duplicate table name %q", t.Name)}
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// inferRelationships links child -> parent for every pair of keyed tables
// with the same key name where the child's keys are a subset of the
// parent's. When both sets are equal only the link pointing at the earlier
// table is kept, so two identical tables never reference each other.
func inferRelationships(tables []TableSchema, keySets []map[string]struct{}) []Relationship {
	rels := []Relationship{}
	for c, child := range tables {
		if !child.HasPrimaryKey() {
			continue
		}
		for p, parent := range tables {
			if p == c || !parent.HasPrimaryKey() || parent.PrimaryKey != child.PrimaryKey {
				continue
			}
			if !isSubset(keySets[c], keySets[p]) {
				continue
			}
			if p > c && len(keySets[c]) == len(keySets[p]) {
				continue
			}
			rels = append(rels, Relationship{
				ParentTable:  parent.Name,
				ParentColumn: parent.PrimaryKey,
				ChildTable:   child.Name,
				ChildColumn:  child.PrimaryKey,
			})
		}
	}
	return rels
}

func valueSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func isSubset(sub, super map[string]struct{}) bool {
	if len(sub) > len(super) {
		return false
	}
	for v := range sub {
		if _, ok := super[v]; !ok {
			return false
		}
	}
	return true
}
