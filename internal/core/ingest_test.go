package core

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReadTable(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantHeader []string
		wantRows   [][]string
		wantErr    error
	}{
		{
			name:       "simple",
			input:      "id,name\n1,Ada\n2,Bo\n",
			wantHeader: []string{"id", "name"},
			wantRows:   [][]string{{"1", "Ada"}, {"2", "Bo"}},
		},
		{
			name:       "BOM stripped from first header",
			input:      "\ufeffid,name\n1,Ada\n",
			wantHeader: []string{"id", "name"},
			wantRows:   [][]string{{"1", "Ada"}},
		},
		{
			name:       "spaces preserved",
			input:      "a, b\n x ,y\n",
			wantHeader: []string{"a", " b"},
			wantRows:   [][]string{{" x ", "y"}},
		},
		{
			name:       "blank lines skipped",
			input:      "a,b\n\n1,2\n\n",
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{{"1", "2"}},
		},
		{
			name:       "header only",
			input:      "a,b\n",
			wantHeader: []string{"a", "b"},
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: ErrEmptyInput,
		},
		{
			name:    "ragged row",
			input:   "a,b\n1,2\n3\n",
			wantErr: ErrInconsistentColumnCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadTable("t", strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadTable() error = %v", err)
			}
			if !reflect.DeepEqual(table.Header(), tt.wantHeader) {
				t.Errorf("Header() = %q, want %q", table.Header(), tt.wantHeader)
			}
			if len(table.Rows) != len(tt.wantRows) {
				t.Fatalf("rows = %d, want %d", len(table.Rows), len(tt.wantRows))
			}
			for i := range tt.wantRows {
				if !reflect.DeepEqual(table.Rows[i], tt.wantRows[i]) {
					t.Errorf("row %d = %q, want %q", i, table.Rows[i], tt.wantRows[i])
				}
			}
		})
	}
}

func TestReadTable_InvalidCSV(t *testing.T) {
	_, err := ReadTable("t", strings.NewReader("a,b\n\"1,2\n"))
	if err == nil {
		t.Fatal("expected error for unterminated quote")
	}
	if got := MapError(err).Code; got != "FILE002" {
		t.Errorf("MapError code = %q, want FILE002 (err = %v)", got, err)
	}
}

func TestReadTableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.2024.csv")
	if err := os.WriteFile(path, []byte("order_id,total\no1,5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := ReadTableFile(path)
	if err != nil {
		t.Fatalf("ReadTableFile() error = %v", err)
	}
	if table.Name != "orders" {
		t.Errorf("Name = %q, want orders", table.Name)
	}

	if _, err := ReadTableFile(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestTableNameFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "customers.csv", want: "customers"},
		{in: "data/orders.csv", want: "orders"},
		{in: "sales.2024.csv", want: "sales"},
		{in: "noext", want: "noext"},
		{in: ".hidden", want: ".hidden"},
	}
	for _, tt := range tests {
		if got := TableNameFromFilename(tt.in); got != tt.want {
			t.Errorf("TableNameFromFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
