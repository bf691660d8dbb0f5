package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestRecoverTable(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantHeader []string
		wantRows   [][]string
	}{
		{
			name:       "fenced block with prose",
			raw:        "Here is your data:\n```csv\nName,Age\nAlice,20\nBob,22\n```\nEnjoy!",
			wantHeader: []string{"Name", "Age"},
			wantRows:   [][]string{{"Alice", "20"}, {"Bob", "22"}},
		},
		{
			name:       "plain csv",
			raw:        "Name,Age,Grade\nAlice,20,A\nBob,22,B",
			wantHeader: []string{"Name", "Age", "Grade"},
			wantRows:   [][]string{{"Alice", "20", "A"}, {"Bob", "22", "B"}},
		},
		{
			name:       "leading prose without fences",
			raw:        "Sure! The dataset follows.\n\nid,city\n1,Oslo\n2,Bergen\n",
			wantHeader: []string{"id", "city"},
			wantRows:   [][]string{{"1", "Oslo"}, {"2", "Bergen"}},
		},
		{
			name:       "blank lines dropped",
			raw:        "a,b\n\n1,2\n   \n3,4\n",
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{"1", "2"}, {"3", "4"}},
		},
		{
			name:       "space after delimiter trimmed",
			raw:        "Name, Age\nAlice, 20",
			wantHeader: []string{"Name", "Age"},
			wantRows:   [][]string{{"Alice", "20"}},
		},
		{
			name:       "quoted field with comma",
			raw:        "name,quote\nAda,\"hello, world\"",
			wantHeader: []string{"name", "quote"},
			wantRows:   [][]string{{"Ada", "hello, world"}},
		},
		{
			name:       "header only",
			raw:        "```\nx,y\n```",
			wantHeader: []string{"x", "y"},
			wantRows:   [][]string{},
		},
		{
			name:       "unterminated fence runs to end",
			raw:        "```csv\nk,v\n1,one",
			wantHeader: []string{"k", "v"},
			wantRows:   [][]string{{"1", "one"}},
		},
		{
			name:       "fenced region preferred over outside commas",
			raw:        "Columns: a, b, c\n```\nx,y\n1,2\n```",
			wantHeader: []string{"x", "y"},
			wantRows:   [][]string{{"1", "2"}},
		},
		{
			name:       "fence without commas falls back to whole text",
			raw:        "```\nnot a table\n```\nq,r\n5,6",
			wantHeader: []string{"q", "r"},
			wantRows:   [][]string{{"5", "6"}},
		},
		{
			name:       "second fence wins when first has no delimiter",
			raw:        "```\nhello\n```\ntext\n```\nm,n\n7,8\n```",
			wantHeader: []string{"m", "n"},
			wantRows:   [][]string{{"7", "8"}},
		},
		{
			name:       "windows line endings",
			raw:        "a,b\r\n1,2\r\n",
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{"1", "2"}},
		},
		{
			name:       "values stay text",
			raw:        "code,amount\n007,1e3",
			wantHeader: []string{"code", "amount"},
			wantRows:   [][]string{{"007", "1e3"}},
		},
		{
			name:       "blank and repeated header names repaired",
			raw:        ",a,a\n1,2,3",
			wantHeader: []string{"Unnamed: 0", "a", "a.1"},
			wantRows:   [][]string{{"1", "2", "3"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := RecoverTable(tt.raw)
			if err != nil {
				t.Fatalf("RecoverTable() error = %v", err)
			}
			if table.Name != RecoveredTableName {
				t.Errorf("Name = %q, want %q", table.Name, RecoveredTableName)
			}
			if got := table.Header(); !reflect.DeepEqual(got, tt.wantHeader) {
				t.Errorf("Header() = %q, want %q", got, tt.wantHeader)
			}
			if len(table.Rows) != len(tt.wantRows) {
				t.Fatalf("got %d rows, want %d", len(table.Rows), len(tt.wantRows))
			}
			for i := range tt.wantRows {
				if !reflect.DeepEqual(table.Rows[i], tt.wantRows[i]) {
					t.Errorf("row %d = %q, want %q", i, table.Rows[i], tt.wantRows[i])
				}
			}
		})
	}
}

func TestRecoverTable_Failures(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		reason   error
		kind     string
		wantLine int
	}{
		{
			name:   "no comma anywhere",
			raw:    "I cannot help with that request.",
			reason: ErrNoTabularContent,
			kind:   "NoTabularContentFound",
		},
		{
			name:   "empty output",
			raw:    "",
			reason: ErrNoTabularContent,
			kind:   "NoTabularContentFound",
		},
		{
			name:   "fences only",
			raw:    "```\n```",
			reason: ErrNoTabularContent,
			kind:   "NoTabularContentFound",
		},
		{
			name:     "short trailing row",
			raw:      "Name,Age\nAlice,20\nBob",
			reason:   ErrInconsistentColumnCount,
			kind:     "InconsistentColumnCount",
			wantLine: 3,
		},
		{
			name:     "long row",
			raw:      "a,b\n1,2,3",
			reason:   ErrInconsistentColumnCount,
			kind:     "InconsistentColumnCount",
			wantLine: 2,
		},
		{
			name:   "unterminated quote",
			raw:    "a,b\n\"1,2",
			reason: ErrParseFailure,
			kind:   "UnderlyingParseFailure",
		},
		{
			name:   "bare quote",
			raw:    "a,b\n1,x\"y",
			reason: ErrParseFailure,
			kind:   "UnderlyingParseFailure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := RecoverTable(tt.raw)
			if err == nil {
				t.Fatalf("RecoverTable() = %v, want error", table)
			}
			if table != nil {
				t.Errorf("table = %v, want nil on failure", table)
			}

			var re *RecoveryError
			if !errors.As(err, &re) {
				t.Fatalf("error type = %T, want *RecoveryError", err)
			}
			if !errors.Is(err, tt.reason) {
				t.Errorf("errors.Is(err, %v) = false; err = %v", tt.reason, err)
			}
			if re.Kind() != tt.kind {
				t.Errorf("Kind() = %q, want %q", re.Kind(), tt.kind)
			}
			if re.Raw != tt.raw {
				t.Errorf("Raw = %q, want original text", re.Raw)
			}
			if tt.wantLine != 0 && re.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", re.Line, tt.wantLine)
			}
		})
	}
}

func TestRecoverTable_CleanedTextExcludesProse(t *testing.T) {
	raw := "Here you go\n```\na,b\n1\n```"
	_, err := RecoverTable(raw)

	var re *RecoveryError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RecoveryError", err)
	}
	if re.Cleaned != "a,b\n1" {
		t.Errorf("Cleaned = %q, want %q", re.Cleaned, "a,b\n1")
	}
	if strings.Contains(re.Cleaned, "```") {
		t.Error("Cleaned still contains a fence marker")
	}
}

func TestRecoverTable_Deterministic(t *testing.T) {
	raw := "```csv\nName,Age\nAlice,20\nBob,22\n```"
	first, err := RecoverTable(raw)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := RecoverTable(raw)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "no fences", raw: "a,b\n1,2", want: "a,b\n1,2"},
		{name: "tagged fence", raw: "```csv\na,b\n```", want: "a,b"},
		{name: "indented fence", raw: "  ```\na,b\n  ```", want: "a,b"},
		{name: "prose around fence", raw: "intro\n```\na,b\n```\noutro", want: "a,b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.raw); got != tt.want {
				t.Errorf("StripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}
