package ask

import (
	"context"

	"github.com/caspianlab/georag/internal/domain"
	"github.com/caspianlab/georag/internal/tabql"
	"github.com/caspianlab/georag/internal/usecase/resolve"
)

// Classifier labels a question by retrieval kind.
type Classifier interface {
	Classify(ctx context.Context, question string) domain.QueryKind
}

// Formalizer extracts structured intent from a question.
type Formalizer interface {
	Formalize(ctx context.Context, question string) domain.FormalizedQuery
}

// Resolver finds and verifies features relevant to a question.
type Resolver interface {
	Resolve(ctx context.Context, question string, onCandidate resolve.CandidateFunc) ([]domain.ResolvedFeature, error)
}

// Synthesizer builds and executes a structured query for one feature.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, feature domain.ResolvedFeature) (*tabql.Result, error)
}

// Summarizer renders the final answer text.
type Summarizer interface {
	Summarize(ctx context.Context, question string, merged *tabql.Result) string
}
