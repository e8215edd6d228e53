package normalize

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/schema"
	"github.com/ruslano69/tablekit/pkg/core/schema/schematest"
)

func newNormalizer(opts ...Option) *Normalizer {
	loader := schematest.NewBuilder().
		Column("Id", "int", false).
		Column("Name", "nvarchar(50)", true).
		Column("Age", "int", true).
		Column("Active", "bit", true).
		Loader()
	return New(schema.NewCache("people", loader), "Id", opts...)
}

type person struct {
	Nickname string `db:"name"`
	Age      int
	Secret   string `db:"-"`
	Unknown  string
	hidden   string
}

type audited struct {
	Active bool
}

type employee struct {
	audited
	Name string
}

func TestNormalize_InputKinds(t *testing.T) {
	ctx := context.Background()
	n := newNormalizer()

	tests := []struct {
		name  string
		input any
		keys  []string
	}{
		{"record", record.New(record.F("age", 30), record.F("name", "Ann"), record.F("zzz", 1)), []string{"Age", "Name"}},
		{"record pointer", &record.Record{}, []string{}},
		{"fields", []record.Field{record.F("NAME", "Ann")}, []string{"Name"}},
		{"map any", map[string]any{"name": "Ann", "id": 1, "extra": true}, []string{"Id", "Name"}},
		{"map string", map[string]string{"age": "30", "name": "Ann"}, []string{"Age", "Name"}},
		{"form", url.Values{"name": {"Ann"}, "submit": {"Save"}}, []string{"Name"}},
		{"struct", person{Nickname: "Ann", Age: 30, Secret: "x", Unknown: "y"}, []string{"Name", "Age"}},
		{"struct pointer", &person{Nickname: "Ann"}, []string{"Name", "Age"}},
		{"embedded", employee{audited: audited{Active: true}, Name: "Bob"}, []string{"Active", "Name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := n.Normalize(ctx, tt.input)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if !reflect.DeepEqual(rec.Keys(), tt.keys) {
				t.Errorf("Keys = %v, want %v", rec.Keys(), tt.keys)
			}
		})
	}
}

func TestNormalize_NeverIntroducesUnknownKeys(t *testing.T) {
	n := newNormalizer()
	input := map[string]any{"a": 1, "b": 2, "NaMe": "x", "AGE": 3, "id ": 4}

	rec, err := n.Normalize(context.Background(), input)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	allowed := map[string]bool{"Id": true, "Name": true, "Age": true, "Active": true}
	for _, k := range rec.Keys() {
		if !allowed[k] {
			t.Errorf("Unexpected key %q", k)
		}
	}
	if rec.Len() != 2 {
		t.Errorf("Expected 2 keys, got %v", rec.Keys())
	}
}

func TestNormalize_FormMultiValues(t *testing.T) {
	n := newNormalizer()
	rec, err := n.Normalize(context.Background(), url.Values{"name": {"a", "b"}})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if rec.Get("Name").String() != "a,b" {
		t.Errorf("Expected joined values, got %q", rec.Get("Name").String())
	}
}

func TestNormalize_Coercion(t *testing.T) {
	n := newNormalizer(WithCoercion())
	rec, err := n.Normalize(context.Background(), url.Values{"age": {"42"}, "active": {"on"}, "name": {"7"}})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if rec.Get("Age").Kind() != record.KindInt {
		t.Errorf("Age should be int, got %s", rec.Get("Age").Kind())
	}
	if b, ok := rec.Get("Active").AsBool(); !ok || !b {
		t.Errorf("Active should be true, got %v", rec.Get("Active"))
	}
	if rec.Get("Name").Kind() != record.KindText {
		t.Errorf("Name must stay text, got %s", rec.Get("Name").Kind())
	}
}

func TestNormalize_UnsupportedInput(t *testing.T) {
	n := newNormalizer()
	for _, input := range []any{nil, 42, "name=Ann", (*person)(nil)} {
		if _, err := n.Normalize(context.Background(), input); !errors.Is(err, errs.ErrConfiguration) {
			t.Errorf("Normalize(%T) expected configuration error, got %v", input, err)
		}
	}
}

func TestPrimaryKey(t *testing.T) {
	n := newNormalizer()
	ctx := context.Background()

	tests := []struct {
		name  string
		input any
		found bool
	}{
		{"present", map[string]any{"id": 5, "name": "Ann"}, true},
		{"case-insensitive", map[string]any{"ID": 5}, true},
		{"absent", map[string]any{"name": "Ann"}, false},
		{"null counts as absent", map[string]any{"id": nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := n.HasPrimaryKey(ctx, tt.input)
			if err != nil {
				t.Fatalf("HasPrimaryKey failed: %v", err)
			}
			if ok != tt.found {
				t.Errorf("HasPrimaryKey = %v, want %v", ok, tt.found)
			}
		})
	}

	v, ok, _ := n.PrimaryKey(ctx, map[string]any{"id": 5})
	if !ok || !v.Equal(record.Int(5)) {
		t.Errorf("PrimaryKey = %v, %v", v, ok)
	}
}

type stamps struct {
	Created time.Time `db:"created_at"`
	Name    string
}

type ticket struct {
	ID    int64 `db:"id"`
	Title string
	*stamps
	Note string `db:"-"`
	note string
}

func TestFields_Struct(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		keys  []string
	}{
		{"tags and lowercase names", ticket{ID: 7, Title: "A", Note: "n", note: "x"}, []string{"id", "title"}},
		{"embedded pointer expanded", &ticket{ID: 7, stamps: &stamps{Created: created, Name: "s"}}, []string{"id", "title", "created_at", "name"}},
		{"embedded value expanded", employee{audited: audited{Active: true}, Name: "Bob"}, []string{"active", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := Fields(tt.input)
			if err != nil {
				t.Fatalf("Fields failed: %v", err)
			}
			keys := make([]string, len(fields))
			for i, f := range fields {
				keys[i] = f.Name
			}
			if !reflect.DeepEqual(keys, tt.keys) {
				t.Errorf("Keys = %v, want %v", keys, tt.keys)
			}
		})
	}

	fields, err := Fields(ticket{ID: 3, stamps: &stamps{Created: created}})
	if err != nil {
		t.Fatalf("Fields failed: %v", err)
	}
	rec := record.New(fields...)
	if v, _ := rec.Get("id").AsInt(); v != 3 {
		t.Errorf("id = %v", rec.Get("id"))
	}
	if got, ok := rec.Get("created_at").AsTime(); !ok || !got.Equal(created) {
		t.Errorf("created_at = %v", rec.Get("created_at"))
	}
}
