package tabql

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed query.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return "Parser Error: " + e.Msg
}

// CatalogError reports a reference to an unknown table.
type CatalogError struct {
	Table string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("Catalog Error: Table with name %s does not exist!", e.Table)
}

// BindError reports a reference to an unknown column. Candidates carry the
// closest existing column names; the message format is load-bearing, the
// synthesizer's repair loop extracts the quoted candidates from it.
type BindError struct {
	Column     string
	Candidates []string
}

func (e *BindError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Binder Error: Referenced column %q not found in FROM clause!", e.Column)
	if len(e.Candidates) > 0 {
		quoted := make([]string, len(e.Candidates))
		for i, c := range e.Candidates {
			quoted[i] = fmt.Sprintf("%q", c)
		}
		fmt.Fprintf(&sb, "\nCandidate bindings: %s", strings.Join(quoted, ", "))
	}
	return sb.String()
}
