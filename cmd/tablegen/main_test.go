package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/JonMunkholm/tablegen/internal/core"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRecoverCmd(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		want    string
		wantErr error
	}{
		{
			name:  "fenced output with prose",
			stdin: "Here you go:\n```csv\nName,Age\nAlice,20\n```\nEnjoy!",
			want:  "Name,Age\nAlice,20\n",
		},
		{
			name:    "no table",
			stdin:   "I can not do that",
			wantErr: core.ErrNoTabularContent,
		},
		{
			name:    "ragged rows",
			stdin:   "a,b\n1,2,3\n",
			wantErr: core.ErrInconsistentColumnCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, tt.stdin, "recover")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecoverCmd_OutputFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "model.txt", "x,y\n1,2\n")
	out := filepath.Join(dir, "table.xlsx")

	if _, err := execute(t, "", "recover", in, "--format", "xlsx", "-o", out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Errorf("output does not look like an xlsx file")
	}
}

func TestSchemaCmd(t *testing.T) {
	dir := t.TempDir()
	users := writeFile(t, dir, "users.csv", "user_id,name\n1,Ada\n2,Bo\n")
	orders := writeFile(t, dir, "orders.csv", "order_id,user_id\n10,1\n11,2\n")

	got, err := execute(t, "", "schema", users, orders, "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var schema core.Schema
	if err := json.Unmarshal([]byte(got), &schema); err != nil {
		t.Fatalf("decode %q: %v", got, err)
	}
	if len(schema.Tables) != 2 {
		t.Fatalf("tables = %+v", schema.Tables)
	}
	if schema.Tables[0].PrimaryKey != "user_id" || schema.Tables[1].PrimaryKey != "order_id" {
		t.Errorf("primary keys = %q, %q", schema.Tables[0].PrimaryKey, schema.Tables[1].PrimaryKey)
	}
	// Keys must share a name to link, so order_id never points at users.
	if len(schema.Relationships) != 0 {
		t.Errorf("relationships = %+v, want none", schema.Relationships)
	}

	text, err := execute(t, "", "schema", users)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "TABLE users (PK: user_id), 2 rows") {
		t.Errorf("text output = %q", text)
	}
}

func TestSchemaCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "x\n1\n")
	b := writeFile(t, dir, "a.old.csv", "x\n2\n")

	if _, err := execute(t, "", "schema", a, b); !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("duplicate table names: error = %v, want configuration error", err)
	}
	if _, err := execute(t, "", "schema", a, "--format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := execute(t, "", "schema"); err == nil {
		t.Error("expected error without files")
	}
}

func TestNormalizeCmd(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("z", 30)
	in := writeFile(t, dir, "notes.csv", "id,body\n1,"+long+"\n")

	got, err := execute(t, "", "normalize", in, "--mode", "multi", "--max-text-len", "10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "id,body\n1," + long[:10] + "\n"; got != want {
		t.Errorf("multi output = %q, want %q", got, want)
	}

	got, err = execute(t, "", "normalize", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "id,body\n1," + strconv.FormatInt(core.Fingerprint(long), 10) + "\n"
	if got != want {
		t.Errorf("single output = %q, want %q", got, want)
	}

	if _, err := execute(t, "", "normalize", in, "--mode", "both"); !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("bad mode: error = %v, want configuration error", err)
	}
}
