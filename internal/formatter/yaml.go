package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/JonMunkholm/tablegen/internal/core"
)

// YAMLFormatter writes the schema as a YAML document.
type YAMLFormatter struct {
	writer io.Writer
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{writer: w}
}

// Format encodes s.
func (f *YAMLFormatter) Format(s *core.Schema) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = f.writer.Write(b)
	return err
}

// JSONFormatter writes the schema as indented JSON.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// Format encodes s.
func (f *JSONFormatter) Format(s *core.Schema) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
