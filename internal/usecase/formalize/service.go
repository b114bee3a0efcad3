// Package formalize turns a free-text question into a structured intent
// object: attributes, location, aggregation action and extra filters.
// The LLM returns JSON; anything unparseable degrades to an empty intent
// rather than an error.
package formalize

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/domain"
)

// Service extracts a FormalizedQuery from a question.
type Service struct {
	llm   Completer
	known map[string]struct{}
	log   *zap.Logger
}

// New creates a formalization service over the given known attribute names.
func New(llm Completer, knownAttributes []string, log *zap.Logger) *Service {
	known := make(map[string]struct{}, len(knownAttributes))
	for _, a := range knownAttributes {
		known[a] = struct{}{}
	}
	return &Service{llm: llm, known: known, log: log}
}

// llmIntent mirrors the JSON shape the model is instructed to return.
type llmIntent struct {
	Attributes []string       `json:"attributes"`
	Location   string         `json:"location"`
	Action     string         `json:"action"`
	Filters    map[string]any `json:"filters"`
}

// Formalize extracts structured intent. On any LLM or parse failure it
// returns an empty FormalizedQuery carrying the raw question.
func (s *Service) Formalize(ctx context.Context, question string) domain.FormalizedQuery {
	prompt := fmt.Sprintf(formalizationPrompt, s.attributesInfo(), question)

	res, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.log.Warn("formalization LLM call failed", zap.Error(err))
		return domain.NewFormalizedQuery(question, nil, "", "", nil, s.known)
	}

	intent, ok := parseIntent(res.Text)
	if !ok {
		s.log.Warn("formalization returned unparseable JSON",
			zap.String("response", truncate(res.Text, 200)))
		return domain.NewFormalizedQuery(question, nil, "", "", nil, s.known)
	}

	return domain.NewFormalizedQuery(
		question, intent.Attributes, intent.Location, intent.Action, intent.Filters, s.known,
	)
}

func (s *Service) attributesInfo() string {
	names := make([]string, 0, len(s.known))
	for name := range s.known {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return strings.TrimRight(b.String(), "\n")
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// parseIntent pulls a JSON object out of the completion text. Ответ может
// быть обёрнут в markdown-блок или окружён пояснениями.
func parseIntent(text string) (llmIntent, bool) {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, "```json"); i >= 0 {
		text = text[i+len("```json"):]
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	} else if i := strings.Index(text, "```"); i >= 0 {
		text = text[i+3:]
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	}
	text = strings.TrimSpace(text)

	var intent llmIntent
	if err := json.Unmarshal([]byte(text), &intent); err == nil {
		return intent, true
	}

	// Последняя попытка: выдёргиваем первый JSON-объект из текста.
	if m := jsonObjectRe.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &intent); err == nil {
			return intent, true
		}
	}
	return llmIntent{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
