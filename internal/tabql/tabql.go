// Package tabql evaluates a small SQL subset against an in-memory table.
// It covers the shapes the query synthesizer produces: single-table SELECT
// with optional aggregates, WHERE with AND/OR/NOT, LIKE, IS NULL, ORDER BY
// and LIMIT. Error messages keep the binder/parser wording the repair loop
// scrapes for candidate column bindings.
package tabql

// Source is the read-only table contract the evaluator runs against.
type Source interface {
	Name() string
	ColumnNames() []string
	HasColumn(name string) bool
	NumRows() int
	Value(row int, col string) (any, bool)
}

// Result is the output of a query: cells are nil, float64, or string.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Execute parses and runs a query against the source.
func Execute(src Source, query string) (*Result, error) {
	stmt, err := Parse(query)
	if err != nil {
		return nil, err
	}
	return eval(src, stmt)
}
