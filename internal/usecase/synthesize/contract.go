package synthesize

import (
	"context"

	"github.com/caspianlab/georag/internal/domain"
	"github.com/caspianlab/georag/internal/tabql"
)

// Completer generates chat completions.
type Completer interface {
	Complete(ctx context.Context, prompt string) (domain.CompletionResult, error)
}

// DataTable is the queryable attribute table plus its prompt-ready schema.
type DataTable interface {
	tabql.Source
	SchemaInfo() string
}
