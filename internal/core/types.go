package core

import (
	"fmt"
	"time"
)

// ColumnKind is the inferred semantic kind of a column.
type ColumnKind string

const (
	KindIdentifier      ColumnKind = "identifier"
	KindCategoricalText ColumnKind = "categorical-text"
	KindNumeric         ColumnKind = "numeric"
	KindFreeText        ColumnKind = "free-text"
)

// Valid reports whether k is one of the known kinds.
func (k ColumnKind) Valid() bool {
	switch k {
	case KindIdentifier, KindCategoricalText, KindNumeric, KindFreeText:
		return true
	}
	return false
}

// Column describes one column of a table.
type Column struct {
	Name   string     `json:"name" yaml:"name"`
	Kind   ColumnKind `json:"kind" yaml:"kind"`
	Unique bool       `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// Table is a named, ordered set of columns and rows.
// Every row has exactly len(Columns) values.
type Table struct {
	Name    string     `json:"name"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// TableSchema is the inferred metadata of a single table.
type TableSchema struct {
	Name       string   `json:"name" yaml:"name"`
	Columns    []Column `json:"columns" yaml:"columns"`
	PrimaryKey string   `json:"primaryKey,omitempty" yaml:"primary_key,omitempty"`
	RowCount   int      `json:"rowCount" yaml:"row_count"`
}

// HasPrimaryKey reports whether inference selected a key column.
func (ts TableSchema) HasPrimaryKey() bool {
	return ts.PrimaryKey != ""
}

// Relationship is an advisory foreign-key link between two tables.
type Relationship struct {
	ParentTable  string `json:"parentTable" yaml:"parent_table"`
	ParentColumn string `json:"parentColumn" yaml:"parent_column"`
	ChildTable   string `json:"childTable" yaml:"child_table"`
	ChildColumn  string `json:"childColumn" yaml:"child_column"`
}

// String renders the link as child.col -> parent.col.
func (r Relationship) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", r.ChildTable, r.ChildColumn, r.ParentTable, r.ParentColumn)
}

// Schema is the inferred structure of one or more tables.
// Tables keep the order they were given in.
type Schema struct {
	Tables        []TableSchema  `json:"tables" yaml:"tables"`
	Relationships []Relationship `json:"relationships" yaml:"relationships"`
}

// Table returns the metadata for the named table.
func (s *Schema) Table(name string) (TableSchema, bool) {
	for _, ts := range s.Tables {
		if ts.Name == name {
			return ts, true
		}
	}
	return TableSchema{}, false
}

// Mode selects the normalization applied before synthesis.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// ParseMode converts user input to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSingle, ModeMulti:
		return Mode(s), nil
	case "":
		return ModeSingle, nil
	}
	return "", &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q (want single or multi)", s)}
}

// ModelHandle identifies a trained model held by an external engine.
type ModelHandle struct {
	ID       string `json:"id"`
	Engine   string `json:"engine"`
	Location string `json:"location,omitempty"`
}

// Artifact describes a serialized table written to the artifact store.
type Artifact struct {
	Name        string `json:"name"`
	Table       string `json:"table"`
	Format      Format `json:"format"`
	ContentType string `json:"contentType"`
	Location    string `json:"location"`
	Key         string `json:"key"`
	Rows        int    `json:"rows"`
	Columns     int    `json:"columns"`
	Size        int64  `json:"size"`
}

// RunKind names the pipeline a run executed.
type RunKind string

const (
	RunGenerate   RunKind = "generate"
	RunRecover    RunKind = "recover"
	RunSynthesize RunKind = "synthesize"
	RunSchema     RunKind = "schema"
)

// RunStatus is the terminal state of a run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunResult summarizes a finished pipeline call.
type RunResult struct {
	RunID     string        `json:"runId"`
	Kind      RunKind       `json:"kind"`
	Artifacts []Artifact    `json:"artifacts"`
	Schema    *Schema       `json:"schema,omitempty"`
	Duration  time.Duration `json:"duration"`
}
