// Package store holds the in-memory attribute table that structured queries
// run against. The table is assembled once at startup from the layer documents
// and is immutable afterwards.
package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column.
type Kind int

const (
	// KindText holds free-form string values.
	KindText Kind = iota
	// KindNumeric holds float64 values.
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "NUMERIC"
	}
	return "TEXT"
}

// Column describes one attribute of the table.
type Column struct {
	Name   string
	Kind   Kind
	Filled int // rows with a non-null value
}

// Table is a wide, sparse, read-only table. Cells are nil, float64, or string.
type Table struct {
	name     string
	cols     []Column
	colIndex map[string]int // exact name -> position
	rows     [][]any
}

// Name returns the logical table name.
func (t *Table) Name() string { return t.name }

// Columns returns the column metadata in declaration order.
func (t *Table) Columns() []Column { return t.cols }

// ColumnNames returns all column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// HasColumn reports whether the exact column name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIndex[name]
	return ok
}

// Value returns the cell at (row, column name). The second return is false
// when the column does not exist.
func (t *Table) Value(row int, col string) (any, bool) {
	idx, ok := t.colIndex[col]
	if !ok {
		return nil, false
	}
	return t.rows[row][idx], true
}

// SchemaInfo renders a one-column-per-line schema description for prompts:
// name, inferred type, and fill ratio.
func (t *Table) SchemaInfo() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table %q: %d rows, %d columns\n", t.name, len(t.rows), len(t.cols))
	for _, c := range t.cols {
		fmt.Fprintf(&sb, "  %q %s (%d/%d filled)\n", c.Name, c.Kind, c.Filled, len(t.rows))
	}
	return sb.String()
}

// Builder assembles a Table from sparse documents. Column order follows first
// appearance; within a single document fields are added in sorted order to
// keep the layout deterministic.
type Builder struct {
	name      string
	cols      []Column
	colIndex  map[string]int
	lowerSeen map[string]int    // lowercased name -> occurrences
	renamed   map[string]string // original colliding name -> stored name
	rows      [][]any
}

// NewBuilder creates a table builder.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:      name,
		colIndex:  make(map[string]int),
		lowerSeen: make(map[string]int),
		renamed:   make(map[string]string),
	}
}

// AddRow appends one document. Missing fields stay null; new fields extend
// the schema. A field whose name collides case-insensitively with an earlier
// column gets a _2/_3/... suffix, mirroring how the source sheets were
// deduplicated at ingestion.
func (b *Builder) AddRow(fields map[string]string) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	row := make([]any, len(b.cols))
	for _, name := range names {
		key := name
		if stored, ok := b.renamed[name]; ok {
			key = stored
		}
		idx, ok := b.colIndex[key]
		if !ok {
			idx = b.addColumn(name)
			row = append(row, nil)
		}
		row[idx] = parseCell(fields[name])
	}
	b.rows = append(b.rows, row)
}

func (b *Builder) addColumn(name string) int {
	lower := strings.ToLower(name)
	n := b.lowerSeen[lower]
	b.lowerSeen[lower] = n + 1

	stored := name
	if n > 0 {
		stored = fmt.Sprintf("%s_%d", name, n+1)
		// Later rows keep using the original name; route them here.
		b.renamed[name] = stored
	}

	idx := len(b.cols)
	b.cols = append(b.cols, Column{Name: stored})
	b.colIndex[stored] = idx

	// Backfill earlier rows with nulls for the new column.
	for i := range b.rows {
		b.rows[i] = append(b.rows[i], nil)
	}
	return idx
}

// Build finalizes the table: pads short rows and infers column kinds.
func (b *Builder) Build() *Table {
	for i := range b.rows {
		for len(b.rows[i]) < len(b.cols) {
			b.rows[i] = append(b.rows[i], nil)
		}
	}

	for ci := range b.cols {
		numeric := true
		filled := 0
		for _, row := range b.rows {
			switch row[ci].(type) {
			case nil:
				continue
			case float64:
				filled++
			case string:
				filled++
				numeric = false
			}
		}
		b.cols[ci].Filled = filled
		if numeric && filled > 0 {
			b.cols[ci].Kind = KindNumeric
		} else {
			b.cols[ci].Kind = KindText
		}
	}

	return &Table{
		name:     b.name,
		cols:     b.cols,
		colIndex: b.colIndex,
		rows:     b.rows,
	}
}

// parseCell converts a raw field value: empty and NaN markers become null,
// numeric strings become float64, everything else stays text.
func parseCell(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "nan" || trimmed == "NaN" || trimmed == "None" {
		return nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return trimmed
}
