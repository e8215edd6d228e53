package xlsx

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/schema"
)

func TestWriteAndReadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.xlsx")
	created := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)

	records := []record.Record{
		record.New(
			record.F("id", 1),
			record.F("title", "Ann"),
			record.F("price", 2.5),
			record.F("active", true),
			record.F("created", created),
		),
		record.New(
			record.F("id", 2),
			record.F("title", nil),
			record.F("price", 10.0),
			record.F("active", false),
			record.F("created", nil),
		),
	}

	if err := WriteRecords(path, "tickets", records, WithPrimaryKey("id")); err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	header, _ := f.GetCellValue("tickets", "A1")
	f.Close()
	if header != "id (INTEGER) *" {
		t.Errorf("Unexpected key header: %q", header)
	}

	sheet, err := ReadRecords(path, "")
	if err != nil {
		t.Fatalf("ReadRecords failed: %v", err)
	}
	if sheet.Name != "tickets" {
		t.Errorf("Sheet name = %s", sheet.Name)
	}
	if pk, ok := sheet.PrimaryKey(); !ok || pk != "id" {
		t.Errorf("PrimaryKey() = %s, %v", pk, ok)
	}

	expectedColumns := []Column{
		{"id", schema.TypeInteger, true},
		{"title", schema.TypeText, false},
		{"price", schema.TypeReal, false},
		{"active", schema.TypeBoolean, false},
		{"created", schema.TypeDatetime, false},
	}
	if len(sheet.Columns) != len(expectedColumns) {
		t.Fatalf("Columns = %+v", sheet.Columns)
	}
	for i, c := range expectedColumns {
		if sheet.Columns[i] != c {
			t.Errorf("Column %d = %+v, want %+v", i, sheet.Columns[i], c)
		}
	}

	if len(sheet.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(sheet.Records))
	}
	first := sheet.Records[0]
	checks := map[string]string{
		"id":      "1",
		"title":   "Ann",
		"price":   "2.5",
		"active":  "1",
		"created": "2026-01-03T10:00:00Z",
	}
	for name, want := range checks {
		if got := first.Get(name); got.Kind() != record.KindText || got.String() != want {
			t.Errorf("%s = %v (%s), want %q", name, got, got.Kind(), want)
		}
	}

	second := sheet.Records[1]
	if !second.Get("title").IsNull() || !second.Get("created").IsNull() {
		t.Errorf("Empty cells must read as NULL: %v", second)
	}
	if second.Get("active").String() != "0" || second.Get("price").String() != "10" {
		t.Errorf("Unexpected second record: %v", second)
	}
}

func TestWriteRecords_SchemaColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.xlsx")
	cols := []schema.ColumnMeta{
		{Name: "id", SQLType: "INTEGER"},
		{Name: "due", SQLType: "DATE", Type: schema.TypeDate},
	}

	// Без записей лист содержит только заголовок
	if err := WriteRecords(path, "", nil, WithColumns(cols), WithPrimaryKey("ID")); err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}

	sheet, err := ReadRecords(path, "Sheet1")
	if err != nil {
		t.Fatalf("ReadRecords failed: %v", err)
	}
	if len(sheet.Records) != 0 {
		t.Errorf("Expected no records, got %d", len(sheet.Records))
	}
	if len(sheet.Columns) != 2 || !sheet.Columns[0].Key || sheet.Columns[1].Type != schema.TypeDate {
		t.Errorf("Unexpected columns: %+v", sheet.Columns)
	}
}

func TestWriteRecords_NoColumns(t *testing.T) {
	if err := WriteRecords(filepath.Join(t.TempDir(), "x.xlsx"), "x", nil); err == nil {
		t.Error("Expected error without columns")
	}
}

func TestReadRecords_MissingFile(t *testing.T) {
	if _, err := ReadRecords(filepath.Join(t.TempDir(), "missing.xlsx"), ""); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		header string
		name   string
		typ    schema.DataType
		key    bool
	}{
		{"id (INTEGER) *", "id", schema.TypeInteger, true},
		{"customer_name (text)", "customer_name", schema.TypeText, false},
		{"plain", "plain", schema.TypeText, false},
		{"code *", "code", schema.TypeText, true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			name, typ, key := parseHeader(tt.header)
			if name != tt.name || typ != tt.typ || key != tt.key {
				t.Errorf("parseHeader(%q) = %q, %q, %v", tt.header, name, typ, key)
			}
		})
	}
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for col, want := range tests {
		if got := columnName(col); got != want {
			t.Errorf("columnName(%d) = %s, want %s", col, got, want)
		}
	}
}
