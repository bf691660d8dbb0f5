package core

import (
	"fmt"
	"strconv"
	"strings"
)

// NewTable builds a table from a header and rows and classifies its columns.
// The header must be non-empty with unique names, and every row must have
// exactly len(header) values. Rows are copied.
func NewTable(name string, header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, &ConfigurationError{Table: name, Reason: "table has no columns"}
	}

	seen := make(map[string]struct{}, len(header))
	cols := make([]Column, len(header))
	for i, h := range header {
		if _, dup := seen[h]; dup {
			return nil, &ConfigurationError{Table: name, Reason: fmt.Sprintf("duplicate column name %q", h)}
		}
		seen[h] = struct{}{}
		cols[i] = Column{Name: h}
	}

	copied := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("table %q row %d: %w: got %d values, want %d",
				name, i+1, ErrInconsistentColumnCount, len(row), len(header))
		}
		copied[i] = append([]string(nil), row...)
	}

	t := &Table{Name: name, Columns: cols, Rows: copied}
	ClassifyColumns(t, ClassifyOptions{})
	return t, nil
}

// Header returns the column names in order.
func (t *Table) Header() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnValues returns a copy of the values in column i.
func (t *Table) ColumnValues(i int) []string {
	vals := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		vals[r] = row[i]
	}
	return vals
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.Columns) }

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// Renamed returns a shallow copy of t under a different name.
func (t *Table) Renamed(name string) *Table {
	out := *t
	out.Name = name
	return &out
}

// repairHeader gives blank header cells a positional name and suffixes
// repeated names with .1, .2 and so on, the way dataframe readers do.
func repairHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
