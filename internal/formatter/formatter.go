// Package formatter renders inferred schemas for people and for prompts.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/tablegen/internal/core"
)

// Formatter writes a schema to its underlying writer.
type Formatter interface {
	Format(s *core.Schema) error
}

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
	FormatJSON     = "json"
)

// Formats lists the accepted format names.
var Formats = []string{FormatText, FormatMarkdown, FormatYAML, FormatJSON}

// New returns the formatter for format writing to w.
func New(format string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown, "md":
		return NewMarkdownFormatter(w), nil
	case FormatYAML, "yml":
		return NewYAMLFormatter(w), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want %s)", format, strings.Join(Formats, ", "))
	}
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		return "text/markdown; charset=utf-8"
	case FormatYAML, "yml":
		return "application/yaml"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// referencedBy returns the links whose parent is table.
func referencedBy(s *core.Schema, table string) []core.Relationship {
	var out []core.Relationship
	for _, rel := range s.Relationships {
		if rel.ParentTable == table {
			out = append(out, rel)
		}
	}
	return out
}

// references returns the links whose child is table.
func references(s *core.Schema, table string) []core.Relationship {
	var out []core.Relationship
	for _, rel := range s.Relationships {
		if rel.ChildTable == table {
			out = append(out, rel)
		}
	}
	return out
}
