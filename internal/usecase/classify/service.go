// Package classify decides whether a question needs structured filtering,
// semantic retrieval, or both. Classification never fails: on any LLM
// problem a keyword heuristic takes over.
package classify

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/domain"
)

// Service classifies user questions.
type Service struct {
	llm Completer
	log *zap.Logger
}

// New creates a classification service.
func New(llm Completer, log *zap.Logger) *Service {
	return &Service{llm: llm, log: log}
}

// Classify returns the query kind for the question. Never returns an error.
func (s *Service) Classify(ctx context.Context, question string) domain.QueryKind {
	prompt := fmt.Sprintf(classificationPrompt, question)

	res, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.log.Warn("classification LLM call failed, falling back to heuristic",
			zap.Error(err))
		return heuristic(question)
	}

	label := strings.ToUpper(strings.TrimSpace(res.Text))
	switch {
	case strings.Contains(label, string(domain.KindStructured)):
		return domain.KindStructured
	case strings.Contains(label, string(domain.KindSemantic)):
		return domain.KindSemantic
	case strings.Contains(label, string(domain.KindCombined)):
		return domain.KindCombined
	}

	s.log.Warn("unrecognized classification label, falling back to heuristic",
		zap.String("label", label))
	return heuristic(question)
}

// heuristic: операторы сравнения или цифры в запросе означают STRUCTURED.
func heuristic(question string) domain.QueryKind {
	for _, op := range []string{">", "<", "=", ">=", "<="} {
		if strings.Contains(question, op) {
			return domain.KindStructured
		}
	}
	for _, r := range question {
		if unicode.IsDigit(r) {
			return domain.KindStructured
		}
	}
	return domain.KindSemantic
}
