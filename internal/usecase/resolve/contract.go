package resolve

import (
	"context"

	"github.com/caspianlab/georag/internal/domain"
)

// Completer generates chat completions.
type Completer interface {
	Complete(ctx context.Context, prompt string) (domain.CompletionResult, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// FeatureSearcher finds nearest feature descriptions by vector similarity.
type FeatureSearcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.FeatureDescription, error)
}
