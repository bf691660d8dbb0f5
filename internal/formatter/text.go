package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/tablegen/internal/core"
)

// TextFormatter formats schema as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s *core.Schema) error {
	for i, table := range s.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.formatTable(s, table)
	}
	return nil
}

func (f *TextFormatter) formatTable(s *core.Schema, table core.TableSchema) {
	pkStr := ""
	if table.HasPrimaryKey() {
		pkStr = fmt.Sprintf(" (PK: %s)", table.PrimaryKey)
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s, %d rows\n", table.Name, pkStr, table.RowCount)

	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatColumn(col))
	}

	if refs := references(s, table.Name); len(refs) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range refs {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s\n", rel.ChildColumn, rel.ParentTable, rel.ParentColumn)
		}
	}
}

func formatColumn(col core.Column) string {
	parts := []string{col.Name + ":", string(col.Kind)}
	if col.Unique && col.Kind != core.KindIdentifier {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}
