// Package resolve maps a user question onto canonical attribute names.
//
// Retrieval alone is not enough: short, jargon-dense geological labels
// produce too many false positives, so every candidate from the vector
// search goes through an independent yes/no relevance check.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/domain"
)

// maxDescriptionChars bounds the description fragment inside the match prompt.
const maxDescriptionChars = 1000

// CandidateFunc is notified after each candidate verification.
type CandidateFunc func(index, total int, name string, matched bool)

// Service resolves questions into verified features.
type Service struct {
	llm      Completer
	embed    Embedder
	features FeatureSearcher
	topK     int
	log      *zap.Logger
}

// New creates a resolution service.
func New(llm Completer, embed Embedder, features FeatureSearcher, topK int, log *zap.Logger) *Service {
	return &Service{llm: llm, embed: embed, features: features, topK: topK, log: log}
}

// Resolve returns the features relevant to the question. onCandidate may be
// nil. An empty result is not an error: it means "no relevant data".
func (s *Service) Resolve(
	ctx context.Context, question string, onCandidate CandidateFunc,
) ([]domain.ResolvedFeature, error) {
	paraphrase := s.paraphrase(ctx, question)

	emb, err := s.embed.Embed(ctx, paraphrase)
	if err != nil {
		return nil, fmt.Errorf("embed paraphrase: %w", err)
	}

	candidates, err := s.features.Search(ctx, emb.Embedding, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search features: %w", err)
	}
	if len(candidates) == 0 {
		s.log.Info("no semantic candidates found", zap.String("question", question))
		return nil, nil
	}

	resolved := make([]domain.ResolvedFeature, 0, len(candidates))
	for i, c := range candidates {
		matched := s.verify(ctx, question, c)
		if onCandidate != nil {
			onCandidate(i+1, len(candidates), c.Name, matched)
		}
		if matched {
			resolved = append(resolved, domain.ResolvedFeature{
				Name:        c.Name,
				Description: c.Description,
			})
		}
	}

	s.log.Info("features resolved",
		zap.Int("candidates", len(candidates)),
		zap.Int("matched", len(resolved)),
	)
	return resolved, nil
}

// paraphrase builds a richer search query. При ошибке LLM ищем по самому
// вопросу — хуже, но не фатально.
func (s *Service) paraphrase(ctx context.Context, question string) string {
	res, err := s.llm.Complete(ctx, fmt.Sprintf(paraphrasePrompt, question))
	if err != nil {
		s.log.Warn("paraphrase generation failed, searching by raw question", zap.Error(err))
		return question
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return question
	}
	return text
}

// verify asks a binary relevance question. Anything not clearly affirmative
// counts as "no", including LLM errors.
func (s *Service) verify(ctx context.Context, question string, c domain.FeatureDescription) bool {
	desc := c.Description
	if len(desc) > maxDescriptionChars {
		desc = desc[:maxDescriptionChars]
	}

	res, err := s.llm.Complete(ctx, fmt.Sprintf(matchPrompt, question, c.Name, desc))
	if err != nil {
		s.log.Warn("feature verification failed",
			zap.String("feature", c.Name), zap.Error(err))
		return false
	}

	answer := strings.ToUpper(strings.TrimSpace(res.Text))
	return strings.Contains(answer, "ДА") || strings.Contains(answer, "YES")
}
