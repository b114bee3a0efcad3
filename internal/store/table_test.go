package store

import (
	"strings"
	"testing"
)

func TestBuilder_UnionOfSparseFields(t *testing.T) {
	b := NewBuilder("layers")
	b.AddRow(map[string]string{"Скважина": "wellA", "Глубина, м": "120.5"})
	b.AddRow(map[string]string{"Скважина": "wellB", "Пористость, %": "18.2"})
	tbl := b.Build()

	if tbl.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.NumRows())
	}
	if len(tbl.Columns()) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(tbl.Columns()))
	}

	// First row has no value for the column introduced by the second row.
	v, ok := tbl.Value(0, "Пористость, %")
	if !ok {
		t.Fatal("expected column to exist")
	}
	if v != nil {
		t.Errorf("expected nil, got %v", v)
	}

	v, _ = tbl.Value(1, "Пористость, %")
	if v != 18.2 {
		t.Errorf("expected 18.2, got %v", v)
	}
}

func TestBuilder_CaseInsensitiveDuplicateRename(t *testing.T) {
	b := NewBuilder("layers")
	b.AddRow(map[string]string{"Depth": "10", "depth": "20"})
	tbl := b.Build()

	if !tbl.HasColumn("Depth") {
		t.Error("expected column Depth")
	}
	if !tbl.HasColumn("depth_2") {
		t.Errorf("expected renamed column depth_2, columns: %v", tbl.ColumnNames())
	}
	if tbl.HasColumn("depth") {
		t.Error("colliding name should have been renamed")
	}
}

func TestBuilder_DuplicateColumnAcrossRows(t *testing.T) {
	// Реальные выгрузки несут дубликат в каждой строке; колонка должна
	// переименоваться один раз, а не плодиться построчно.
	b := NewBuilder("layers")
	for i := 0; i < 3; i++ {
		b.AddRow(map[string]string{"Regio": "north", "regio": "south"})
	}
	tbl := b.Build()

	names := tbl.ColumnNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 columns (Regio, regio_2), got %d: %v", len(names), names)
	}
	if !tbl.HasColumn("Regio") || !tbl.HasColumn("regio_2") {
		t.Fatalf("unexpected columns %v", names)
	}

	for _, c := range tbl.Columns() {
		if c.Filled != 3 {
			t.Errorf("column %q must be filled in every row, got %d/3", c.Name, c.Filled)
		}
	}
	for row := 0; row < 3; row++ {
		if v, _ := tbl.Value(row, "regio_2"); v != "south" {
			t.Errorf("row %d of regio_2 = %v, want south", row, v)
		}
	}
}

func TestBuilder_ThirdDuplicateGetsSuffix3(t *testing.T) {
	b := NewBuilder("layers")
	b.AddRow(map[string]string{"NAME": "a", "Name": "b", "name": "c"})
	tbl := b.Build()

	names := tbl.ColumnNames()
	if len(names) != 3 {
		t.Fatalf("expected 3 columns, got %v", names)
	}
	// Sorted field order within a row: NAME, Name, name.
	want := map[string]bool{"NAME": true, "Name_2": true, "name_3": true}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected column %q in %v", n, names)
		}
	}
}

func TestBuilder_KindInference(t *testing.T) {
	b := NewBuilder("layers")
	b.AddRow(map[string]string{"num": "1.5", "text": "abc", "mixed": "2"})
	b.AddRow(map[string]string{"num": "3", "text": "def", "mixed": "not a number"})
	b.AddRow(map[string]string{"num": "", "text": "", "mixed": ""})
	tbl := b.Build()

	byName := map[string]Column{}
	for _, c := range tbl.Columns() {
		byName[c.Name] = c
	}

	if byName["num"].Kind != KindNumeric {
		t.Errorf("expected num to be NUMERIC")
	}
	if byName["num"].Filled != 2 {
		t.Errorf("expected num filled=2, got %d", byName["num"].Filled)
	}
	if byName["text"].Kind != KindText {
		t.Errorf("expected text to be TEXT")
	}
	if byName["mixed"].Kind != KindText {
		t.Errorf("a single non-numeric value makes the column TEXT")
	}
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"  ", nil},
		{"nan", nil},
		{"NaN", nil},
		{"None", nil},
		{"12.5", 12.5},
		{"-3", -3.0},
		{"wellA", "wellA"},
		{" 44.3 ", 44.3},
		{"[44.3, 48.0]", "[44.3, 48.0]"},
	}
	for _, tc := range tests {
		got := parseCell(tc.in)
		if got != tc.want {
			t.Errorf("parseCell(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTable_SchemaInfo(t *testing.T) {
	b := NewBuilder("layers")
	b.AddRow(map[string]string{"Глубина, м": "100"})
	tbl := b.Build()

	info := tbl.SchemaInfo()
	if info == "" {
		t.Fatal("expected non-empty schema info")
	}
	for _, want := range []string{"layers", "Глубина, м", "NUMERIC", "1/1"} {
		if !strings.Contains(info, want) {
			t.Errorf("schema info missing %q:\n%s", want, info)
		}
	}
}

func TestTable_ValueUnknownColumn(t *testing.T) {
	b := NewBuilder("layers")
	b.AddRow(map[string]string{"a": "1"})
	tbl := b.Build()

	if _, ok := tbl.Value(0, "nope"); ok {
		t.Error("expected ok=false for unknown column")
	}
}
