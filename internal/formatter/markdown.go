package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/tablegen/internal/core"
)

// MarkdownFormatter formats schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *core.Schema) error {
	_, _ = fmt.Fprintln(f.writer, "# Inferred Schema")
	_, _ = fmt.Fprintln(f.writer)

	for _, table := range s.Tables {
		f.formatTable(s, table)
	}
	return nil
}

func (f *MarkdownFormatter) formatTable(s *core.Schema, table core.TableSchema) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Name)
	_, _ = fmt.Fprintf(f.writer, "%d rows\n\n", table.RowCount)

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, col := range table.Columns {
		constraintStr := f.formatConstraints(col, table.PrimaryKey)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, col.Kind, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, col.Kind)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if refs := references(s, table.Name); len(refs) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range refs {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s\n", rel.ChildColumn, rel.ParentTable, rel.ParentColumn)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if incoming := referencedBy(s, table.Name); len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced by")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range incoming {
			_, _ = fmt.Fprintf(f.writer, "- %s.%s → %s\n", rel.ChildTable, rel.ChildColumn, rel.ParentColumn)
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func (f *MarkdownFormatter) formatConstraints(col core.Column, primaryKey string) string {
	var constraints []string
	if col.Name == primaryKey {
		constraints = append(constraints, "PK")
	} else if col.Unique {
		constraints = append(constraints, "UNIQUE")
	}
	return strings.Join(constraints, ", ")
}
