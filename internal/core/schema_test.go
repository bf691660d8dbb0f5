package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestInferSchema_PrimaryKeys(t *testing.T) {
	customers := mustTable(t, "customers",
		[]string{"region", "customer_id", "name"},
		[]string{"north", "c1", "Ada"},
		[]string{"north", "c2", "Bo"},
		[]string{"south", "c3", "Cy"},
	)
	events := mustTable(t, "events",
		[]string{"kind", "day"},
		[]string{"click", "1"},
		[]string{"click", "1"},
	)
	empty := mustTable(t, "empty", []string{"a", "b"})

	schema, err := InferSchema([]*Table{customers, events, empty})
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}

	if len(schema.Tables) != 3 {
		t.Fatalf("got %d tables, want 3", len(schema.Tables))
	}

	c, ok := schema.Table("customers")
	if !ok || c.PrimaryKey != "customer_id" {
		t.Fatalf("customers primary key = %+v, want customer_id", c)
	}
	if c.Columns[1].Kind != KindIdentifier {
		t.Errorf("key column kind = %q, want %q", c.Columns[1].Kind, KindIdentifier)
	}
	if c.Columns[0].Kind == KindIdentifier || c.Columns[2].Kind == KindIdentifier {
		t.Error("non-key column marked as identifier")
	}
	if c.RowCount != 3 {
		t.Errorf("RowCount = %d, want 3", c.RowCount)
	}

	if e, _ := schema.Table("events"); e.HasPrimaryKey() {
		t.Errorf("events primary key = %q, want none", e.PrimaryKey)
	}
	if e, _ := schema.Table("empty"); e.HasPrimaryKey() {
		t.Errorf("empty table primary key = %q, want none", e.PrimaryKey)
	}

	if customers.Columns[1].Kind == KindIdentifier {
		t.Error("InferSchema modified the input table")
	}
}

func TestInferSchema_LeftmostDistinctWins(t *testing.T) {
	table := mustTable(t, "t",
		[]string{"a", "b", "c"},
		[]string{"1", "x", "p"},
		[]string{"1", "y", "q"},
	)
	if got := PrimaryKeyCandidate(table); got != 1 {
		t.Errorf("PrimaryKeyCandidate() = %d, want 1", got)
	}
}

func TestInferSchema_Relationships(t *testing.T) {
	users := mustTable(t, "users",
		[]string{"user_id", "name"},
		[]string{"1", "Ada"},
		[]string{"2", "Bo"},
		[]string{"3", "Cy"},
	)
	profiles := mustTable(t, "profiles",
		[]string{"user_id", "bio"},
		[]string{"1", "hi"},
		[]string{"3", "yo"},
	)
	strangers := mustTable(t, "strangers",
		[]string{"user_id", "bio"},
		[]string{"1", "hi"},
		[]string{"9", "??"},
	)
	products := mustTable(t, "products",
		[]string{"sku", "price"},
		[]string{"1", "10"},
		[]string{"2", "12"},
	)

	schema, err := InferSchema([]*Table{users, profiles, strangers, products})
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}

	want := []Relationship{
		{ParentTable: "users", ParentColumn: "user_id", ChildTable: "profiles", ChildColumn: "user_id"},
	}
	if !reflect.DeepEqual(schema.Relationships, want) {
		t.Errorf("Relationships = %+v, want %+v", schema.Relationships, want)
	}
}

func TestInferSchema_EqualKeySetsLinkOnce(t *testing.T) {
	a := mustTable(t, "a", []string{"id"}, []string{"1"}, []string{"2"})
	b := mustTable(t, "b", []string{"id"}, []string{"2"}, []string{"1"})

	schema, err := InferSchema([]*Table{a, b})
	if err != nil {
		t.Fatal(err)
	}
	want := []Relationship{{ParentTable: "a", ParentColumn: "id", ChildTable: "b", ChildColumn: "id"}}
	if !reflect.DeepEqual(schema.Relationships, want) {
		t.Errorf("Relationships = %+v, want %+v", schema.Relationships, want)
	}
}

func TestInferSchema_NoRelationshipsIsEmptyNotNil(t *testing.T) {
	a := mustTable(t, "a", []string{"id"}, []string{"1"})
	schema, err := InferSchema([]*Table{a})
	if err != nil {
		t.Fatal(err)
	}
	if schema.Relationships == nil || len(schema.Relationships) != 0 {
		t.Errorf("Relationships = %#v, want empty slice", schema.Relationships)
	}
}

func TestInferSchema_Deterministic(t *testing.T) {
	build := func() []*Table {
		return []*Table{
			mustTable(t, "orders", []string{"order_id", "total"}, []string{"o1", "5"}, []string{"o2", "7"}),
			mustTable(t, "items", []string{"order_id", "sku"}, []string{"o1", "s"}),
		}
	}
	first, err := InferSchema(build())
	if err != nil {
		t.Fatal(err)
	}
	second, err := InferSchema(build())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("schemas differ:\n%+v\n%+v", first, second)
	}
}

func TestInferSchema_ConfigurationErrors(t *testing.T) {
	ok := mustTable(t, "ok", []string{"id"}, []string{"1"})
	noCols := &Table{Name: "nocols"}

	tests := []struct {
		name   string
		tables []*Table
	}{
		{name: "no tables", tables: nil},
		{name: "zero columns", tables: []*Table{ok, noCols}},
		{name: "duplicate name", tables: []*Table{ok, ok.Clone()}},
		{name: "nil table", tables: []*Table{ok, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := InferSchema(tt.tables)
			if schema != nil {
				t.Errorf("schema = %+v, want nil", schema)
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want *ConfigurationError", err)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Error("errors.Is(err, ErrConfiguration) = false")
			}
		})
	}
}

func TestNewTable_Errors(t *testing.T) {
	if _, err := NewTable("t", nil, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("empty header error = %v, want configuration error", err)
	}
	if _, err := NewTable("t", []string{"a", "a"}, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("duplicate header error = %v, want configuration error", err)
	}
	if _, err := NewTable("t", []string{"a", "b"}, [][]string{{"1"}}); !errors.Is(err, ErrInconsistentColumnCount) {
		t.Errorf("short row error = %v, want %v", err, ErrInconsistentColumnCount)
	}
}
