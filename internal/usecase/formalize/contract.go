package formalize

import (
	"context"

	"github.com/caspianlab/georag/internal/domain"
)

// Completer generates chat completions.
type Completer interface {
	Complete(ctx context.Context, prompt string) (domain.CompletionResult, error)
}
