// Package synthesize turns a question plus a verified feature into an
// executable query against the attribute table. Execution errors are fed
// back to the model: binder errors carry candidate column bindings, and
// the repair prompts pass them on, so misspelled or visually confusable
// column names (Latin vs Cyrillic homoglyphs) converge within a few
// attempts.
package synthesize

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/domain"
	"github.com/caspianlab/georag/internal/metrics"
	"github.com/caspianlab/georag/internal/tabql"
)

// DefaultMaxAttempts is the total query budget per feature: one generation
// plus repairs.
const DefaultMaxAttempts = 3

// Service synthesizes and executes structured queries.
type Service struct {
	llm         Completer
	table       DataTable
	maxAttempts int
	log         *zap.Logger
}

// New creates a synthesis service. maxAttempts below 1 falls back to
// DefaultMaxAttempts.
func New(llm Completer, table DataTable, maxAttempts int, log *zap.Logger) *Service {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Service{llm: llm, table: table, maxAttempts: maxAttempts, log: log}
}

// attemptState accumulates what the repair prompts need between tries.
type attemptState struct {
	lastQuery     string
	errHistory    []string
	allCandidates []string
}

// Synthesize generates, executes, and if needed repairs a query for one
// feature. The feature's description travels into every prompt: the model
// matches wording against the schema better when it knows what the column
// means. When every attempt fails the error wraps
// domain.ErrSynthesisExhausted; the caller decides whether to skip the
// feature or fail the request.
func (s *Service) Synthesize(
	ctx context.Context, question string, feature domain.ResolvedFeature,
) (*tabql.Result, error) {
	var state attemptState

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		query, err := s.nextQuery(ctx, attempt, question, feature, &state)
		if err != nil {
			return nil, err
		}
		state.lastQuery = query

		res, execErr := tabql.Execute(s.table, query)
		if execErr == nil {
			metrics.SynthesisAttemptsTotal.WithLabelValues(strconv.Itoa(attempt), "ok").Inc()
			s.log.Info("query executed",
				zap.String("feature", feature.Name),
				zap.Int("attempt", attempt),
				zap.Int("rows", len(res.Rows)),
			)
			return res, nil
		}

		metrics.SynthesisAttemptsTotal.WithLabelValues(strconv.Itoa(attempt), "exec_error").Inc()
		s.log.Warn("query failed",
			zap.String("feature", feature.Name),
			zap.Int("attempt", attempt),
			zap.String("query", query),
			zap.Error(execErr),
		)

		state.errHistory = append(state.errHistory,
			fmt.Sprintf("Попытка %d: %s", attempt, execErr.Error()))
		state.allCandidates = mergeCandidates(state.allCandidates, extractCandidateBindings(execErr.Error()))
	}

	metrics.SynthesisAttemptsTotal.WithLabelValues(strconv.Itoa(s.maxAttempts), "exhausted").Inc()
	return nil, fmt.Errorf("feature %q: %d attempts failed, last error: %s: %w",
		feature.Name, s.maxAttempts, lastError(state.errHistory), domain.ErrSynthesisExhausted)
}

// nextQuery asks the model for the attempt's query: generation on the first
// try, targeted fix on the second, full-history rewrite afterwards.
func (s *Service) nextQuery(
	ctx context.Context, attempt int, question string, feature domain.ResolvedFeature,
	state *attemptState,
) (string, error) {
	var prompt string
	switch {
	case attempt == 1:
		prompt = fmt.Sprintf(generationPrompt,
			s.table.SchemaInfo(), question, feature.Name, description(feature), s.table.Name())
	case attempt == 2:
		prompt = fmt.Sprintf(fixPrompt,
			s.table.SchemaInfo(), feature.Name, description(feature), state.lastQuery,
			lastError(state.errHistory), candidateList(state.allCandidates))
	default:
		prompt = fmt.Sprintf(fixPromptV2,
			s.table.SchemaInfo(), feature.Name, description(feature), state.lastQuery,
			strings.Join(state.errHistory, "\n"), candidateList(state.allCandidates))
	}

	res, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesize attempt %d: %w", attempt, err)
	}

	query := stripFences(res.Text)
	if query == "" {
		return "", fmt.Errorf("synthesize attempt %d: empty query from model: %w",
			attempt, domain.ErrLLMProviderError)
	}
	return query, nil
}

// description returns the feature description for a prompt. Признаки из
// формализации приходят без описания.
func description(f domain.ResolvedFeature) string {
	if strings.TrimSpace(f.Description) == "" {
		return "(нет описания)"
	}
	return f.Description
}

// stripFences removes markdown code fences and a trailing semicolon.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```sql"); i >= 0 {
		text = text[i+len("```sql"):]
	} else if i := strings.Index(text, "```"); i >= 0 {
		text = text[i+3:]
	}
	if j := strings.Index(text, "```"); j >= 0 {
		text = text[:j]
	}
	return strings.TrimSuffix(strings.TrimSpace(text), ";")
}

var (
	candidateLineRe = regexp.MustCompile(`Candidate bindings:\s*([^\n]+)`)
	candidateNameRe = regexp.MustCompile(`"([^"]+)"`)
)

// extractCandidateBindings pulls the quoted column names out of a binder
// error message.
func extractCandidateBindings(errText string) []string {
	m := candidateLineRe.FindStringSubmatch(errText)
	if m == nil {
		return nil
	}
	var names []string
	for _, g := range candidateNameRe.FindAllStringSubmatch(m[1], -1) {
		names = append(names, g[1])
	}
	return names
}

// mergeCandidates unions two candidate lists preserving first-seen order.
func mergeCandidates(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[c] = struct{}{}
	}
	for _, c := range incoming {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			existing = append(existing, c)
		}
	}
	return existing
}

func candidateList(candidates []string) string {
	if len(candidates) == 0 {
		return "(нет подсказок)"
	}
	quoted := make([]string, len(candidates))
	for i, c := range candidates {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(quoted, ", ")
}

func lastError(history []string) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1]
}
