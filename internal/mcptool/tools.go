// Package mcptool exposes table recovery, schema inference and
// normalization as Model Context Protocol tools.
package mcptool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JonMunkholm/tablegen/internal/core"
)

// MetadataRecoverTable describes the recover_table tool.
var MetadataRecoverTable = &mcp.Tool{
	Name: "recover_table",
	Description: "Recover a table from free-form generated text. Markdown code fences and " +
		"leading prose are stripped, the first comma-separated line becomes the header, and every " +
		"following line must have the same number of fields. Values are returned as text.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"text"},
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Raw text produced by a language model",
			},
		},
	},
}

// InputRecoverTable is the input for the RecoverTable tool.
type InputRecoverTable struct {
	Text string `json:"text"`
}

// OutputRecoverTable is the output for the RecoverTable tool.
type OutputRecoverTable struct {
	Columns  []core.Column `json:"columns"`
	Rows     [][]string    `json:"rows"`
	RowCount int           `json:"row_count"`
}

// RecoverTable runs text-to-table recovery.
func RecoverTable(_ context.Context, _ *mcp.CallToolRequest, input InputRecoverTable) (*mcp.CallToolResult, OutputRecoverTable, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, OutputRecoverTable{}, fmt.Errorf("text is required")
	}

	table, err := core.RecoverTable(input.Text)
	if err != nil {
		var re *core.RecoveryError
		if errors.As(err, &re) {
			return nil, OutputRecoverTable{}, fmt.Errorf("%s: %w", re.Kind(), err)
		}
		return nil, OutputRecoverTable{}, err
	}

	return nil, OutputRecoverTable{
		Columns:  table.Columns,
		Rows:     table.Rows,
		RowCount: table.NumRows(),
	}, nil
}

// MetadataInferSchema describes the infer_schema tool.
var MetadataInferSchema = &mcp.Tool{
	Name: "infer_schema",
	Description: "Infer primary keys and relationships for one or more CSV tables. The leftmost " +
		"column whose values are all distinct becomes the primary key. Two tables are linked when " +
		"their keys share a name and every key value of the child appears in the parent. " +
		"Relationships are advisory.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"tables"},
		"properties": map[string]interface{}{
			"tables": map[string]interface{}{
				"type":        "array",
				"description": "Tables in order; names must be unique",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []string{"name", "csv"},
					"properties": map[string]interface{}{
						"name": map[string]interface{}{"type": "string"},
						"csv":  map[string]interface{}{"type": "string", "description": "CSV text with a header row"},
					},
				},
			},
		},
	},
}

// CSVTable is a named CSV document.
type CSVTable struct {
	Name string `json:"name"`
	CSV  string `json:"csv"`
}

// InputInferSchema is the input for the InferSchema tool.
type InputInferSchema struct {
	Tables []CSVTable `json:"tables"`
}

// OutputInferSchema is the output for the InferSchema tool.
type OutputInferSchema struct {
	Tables        []core.TableSchema  `json:"tables"`
	Relationships []core.Relationship `json:"relationships"`
}

// InferSchema parses every table and runs schema inference over them.
func InferSchema(_ context.Context, _ *mcp.CallToolRequest, input InputInferSchema) (*mcp.CallToolResult, OutputInferSchema, error) {
	if len(input.Tables) == 0 {
		return nil, OutputInferSchema{}, fmt.Errorf("at least one table is required")
	}

	tables := make([]*core.Table, 0, len(input.Tables))
	for i, in := range input.Tables {
		t, err := parseCSV(in)
		if err != nil {
			return nil, OutputInferSchema{}, fmt.Errorf("tables[%d]: %w", i, err)
		}
		tables = append(tables, t)
	}

	schema, err := core.InferSchema(tables)
	if err != nil {
		return nil, OutputInferSchema{}, err
	}
	return nil, OutputInferSchema{Tables: schema.Tables, Relationships: schema.Relationships}, nil
}

// MetadataNormalizeTable describes the normalize_table tool.
var MetadataNormalizeTable = &mcp.Tool{
	Name: "normalize_table",
	Description: "Prepare a CSV table for a synthesizer. Mode single replaces free-text values " +
		"with stable integer fingerprints; mode multi truncates them to max_text_len characters " +
		"(default 200).",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"csv"},
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Table name; defaults to \"table\"",
			},
			"csv": map[string]interface{}{
				"type":        "string",
				"description": "CSV text with a header row",
			},
			"mode": map[string]interface{}{
				"type": "string",
				"enum": []string{"single", "multi"},
			},
			"max_text_len": map[string]interface{}{
				"type":        "integer",
				"description": "Truncation length for mode multi",
				"minimum":     1,
			},
		},
	},
}

// InputNormalizeTable is the input for the NormalizeTable tool.
type InputNormalizeTable struct {
	Name       string `json:"name"`
	CSV        string `json:"csv"`
	Mode       string `json:"mode"`
	MaxTextLen int    `json:"max_text_len"`
}

// OutputNormalizeTable is the output for the NormalizeTable tool.
type OutputNormalizeTable struct {
	CSV     string        `json:"csv"`
	Columns []core.Column `json:"columns"`
}

// NormalizeTable applies the selected normalization and returns CSV.
func NormalizeTable(_ context.Context, _ *mcp.CallToolRequest, input InputNormalizeTable) (*mcp.CallToolResult, OutputNormalizeTable, error) {
	mode, err := core.ParseMode(input.Mode)
	if err != nil {
		return nil, OutputNormalizeTable{}, err
	}
	name := input.Name
	if name == "" {
		name = "table"
	}

	t, err := parseCSV(CSVTable{Name: name, CSV: input.CSV})
	if err != nil {
		return nil, OutputNormalizeTable{}, err
	}
	out, err := core.Normalize(t, core.NormalizeOptions{Mode: mode, MaxTextLen: input.MaxTextLen})
	if err != nil {
		return nil, OutputNormalizeTable{}, err
	}

	var buf bytes.Buffer
	if err := core.EncodeCSV(&buf, out); err != nil {
		return nil, OutputNormalizeTable{}, err
	}
	return nil, OutputNormalizeTable{CSV: buf.String(), Columns: out.Columns}, nil
}

func parseCSV(in CSVTable) (*core.Table, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if strings.TrimSpace(in.CSV) == "" {
		return nil, fmt.Errorf("csv is required")
	}
	return core.ReadTable(in.Name, strings.NewReader(in.CSV))
}
