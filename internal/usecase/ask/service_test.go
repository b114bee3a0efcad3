package ask

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/domain"
	"github.com/caspianlab/georag/internal/tabql"
	"github.com/caspianlab/georag/internal/usecase/resolve"
)

type mockClassifier struct{ kind domain.QueryKind }

func (m *mockClassifier) Classify(context.Context, string) domain.QueryKind { return m.kind }

type mockFormalizer struct {
	query  domain.FormalizedQuery
	called bool
}

func (m *mockFormalizer) Formalize(context.Context, string) domain.FormalizedQuery {
	m.called = true
	return m.query
}

type mockResolver struct {
	features []domain.ResolvedFeature
	err      error
}

func (m *mockResolver) Resolve(
	_ context.Context, _ string, onCandidate resolve.CandidateFunc,
) ([]domain.ResolvedFeature, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i, f := range m.features {
		if onCandidate != nil {
			onCandidate(i+1, len(m.features), f.Name, true)
		}
	}
	return m.features, nil
}

type mockSynthesizer struct {
	results map[string]*tabql.Result
	errs    map[string]error
	calls   []domain.ResolvedFeature
}

func (m *mockSynthesizer) Synthesize(
	_ context.Context, _ string, feature domain.ResolvedFeature,
) (*tabql.Result, error) {
	m.calls = append(m.calls, feature)
	if err := m.errs[feature.Name]; err != nil {
		return nil, err
	}
	if res := m.results[feature.Name]; res != nil {
		return res, nil
	}
	return &tabql.Result{}, nil
}

type mockSummarizer struct {
	lastMerged *tabql.Result
}

func (m *mockSummarizer) Summarize(_ context.Context, _ string, merged *tabql.Result) string {
	m.lastMerged = merged
	return "ответ"
}

func oneRowResult(cols []string, row []any) *tabql.Result {
	return &tabql.Result{Columns: cols, Rows: [][]any{row}}
}

func newPipeline(
	kind domain.QueryKind, form *mockFormalizer, res *mockResolver,
	syn *mockSynthesizer, sum *mockSummarizer,
) *Service {
	return New(&mockClassifier{kind: kind}, form, res, syn, sum, zap.NewNop())
}

func TestAsk_FullPipeline(t *testing.T) {
	syn := &mockSynthesizer{results: map[string]*tabql.Result{
		"Rо,%": oneRowResult([]string{"Rо,%", "lon", "lat"}, []any{1.4, 50.5, 40.2}),
	}}
	sum := &mockSummarizer{}
	svc := newPipeline(domain.KindStructured, &mockFormalizer{}, &mockResolver{
		features: []domain.ResolvedFeature{{Name: "Rо,%", Description: "Отражательная способность витринита"}},
	}, syn, sum)

	res, err := svc.Ask(context.Background(), "Где R0 > 1.0%?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(syn.calls) != 1 || syn.calls[0].Description != "Отражательная способность витринита" {
		t.Errorf("synthesizer must receive the resolved description, got %+v", syn.calls)
	}
	if res.Answer != "ответ" {
		t.Errorf("unexpected answer %q", res.Answer)
	}
	if res.ResultsCount != 1 {
		t.Errorf("expected 1 result, got %d", res.ResultsCount)
	}
	if !res.HasCoordinates || len(res.Coordinates) != 1 {
		t.Errorf("expected coordinates, got %+v", res)
	}
	if res.Coordinates[0].Lon != 50.5 || res.Coordinates[0].Lat != 40.2 {
		t.Errorf("unexpected point %+v", res.Coordinates[0])
	}
}

func TestAsk_FormalizedAttributesJoinResolved(t *testing.T) {
	known := map[string]struct{}{"Глубина, м": {}, "Rо,%": {}}
	form := &mockFormalizer{query: domain.NewFormalizedQuery(
		"q", []string{"Глубина, м"}, "", "list", nil, known,
	)}
	syn := &mockSynthesizer{}
	svc := newPipeline(domain.KindCombined, form, &mockResolver{
		features: []domain.ResolvedFeature{{Name: "Rо,%"}},
	}, syn, &mockSummarizer{})

	if _, err := svc.Ask(context.Background(), "q", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(syn.calls) != 2 {
		t.Fatalf("expected 2 synthesized features, got %v", syn.calls)
	}
	if syn.calls[0].Name != "Глубина, м" || syn.calls[1].Name != "Rо,%" {
		t.Errorf("unexpected feature order %v", syn.calls)
	}
}

func TestAsk_SemanticSkipsFormalization(t *testing.T) {
	form := &mockFormalizer{}
	svc := newPipeline(domain.KindSemantic, form, &mockResolver{}, &mockSynthesizer{}, &mockSummarizer{})

	if _, err := svc.Ask(context.Background(), "Расскажи о зрелой нефти", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.called {
		t.Error("formalizer must not run for semantic questions")
	}
}

func TestAsk_ExhaustedFeatureContributesNothing(t *testing.T) {
	syn := &mockSynthesizer{
		results: map[string]*tabql.Result{
			"Сорг,%": oneRowResult([]string{"Сорг,%"}, []any{3.4}),
		},
		errs: map[string]error{"Rо,%": domain.ErrSynthesisExhausted},
	}
	sum := &mockSummarizer{}
	svc := newPipeline(domain.KindStructured, &mockFormalizer{}, &mockResolver{
		features: []domain.ResolvedFeature{{Name: "Rо,%"}, {Name: "Сорг,%"}},
	}, syn, sum)

	res, err := svc.Ask(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("pipeline must survive one exhausted feature: %v", err)
	}
	if res.ResultsCount != 1 {
		t.Errorf("expected rows only from the surviving feature, got %d", res.ResultsCount)
	}
	if sum.lastMerged == nil || len(sum.lastMerged.Rows) != 1 {
		t.Errorf("summarizer must see the merged survivor rows")
	}
}

func TestAsk_ResolverErrorDegradesToNoData(t *testing.T) {
	sum := &mockSummarizer{}
	svc := newPipeline(domain.KindSemantic, &mockFormalizer{}, &mockResolver{
		err: errors.New("index unavailable"),
	}, &mockSynthesizer{}, sum)

	res, err := svc.Ask(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("resolver failure must degrade, got %v", err)
	}
	if res.ResultsCount != 0 {
		t.Errorf("expected empty result, got %d", res.ResultsCount)
	}
}

func TestAsk_QuotaRejectionPropagates(t *testing.T) {
	svc := newPipeline(domain.KindSemantic, &mockFormalizer{}, &mockResolver{
		err: domain.ErrTokenQuotaExceeded,
	}, &mockSynthesizer{}, &mockSummarizer{})

	_, err := svc.Ask(context.Background(), "q", nil)
	if !errors.Is(err, domain.ErrTokenQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestAsk_QuotaRejectionDuringSynthesis(t *testing.T) {
	syn := &mockSynthesizer{errs: map[string]error{"Rо,%": domain.ErrTokenQuotaExceeded}}
	svc := newPipeline(domain.KindStructured, &mockFormalizer{}, &mockResolver{
		features: []domain.ResolvedFeature{{Name: "Rо,%"}},
	}, syn, &mockSummarizer{})

	_, err := svc.Ask(context.Background(), "q", nil)
	if !errors.Is(err, domain.ErrTokenQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestAsk_ProgressMilestones(t *testing.T) {
	syn := &mockSynthesizer{results: map[string]*tabql.Result{
		"Rо,%": oneRowResult([]string{"Rо,%"}, []any{1.4}),
	}}
	svc := newPipeline(domain.KindStructured, &mockFormalizer{}, &mockResolver{
		features: []domain.ResolvedFeature{{Name: "Rо,%"}},
	}, syn, &mockSummarizer{})

	type event struct {
		step string
		pct  int
	}
	var events []event
	_, err := svc.Ask(context.Background(), "q", func(step string, pct int, _ string) {
		events = append(events, event{step, pct})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var steps []string
	last := -1
	for _, e := range events {
		steps = append(steps, e.step)
		if e.pct < last {
			t.Errorf("progress went backwards: %v", events)
		}
		last = e.pct
	}
	joined := strings.Join(steps, ",")
	for _, want := range []string{StepClassify, StepFormalize, StepResolve, StepSynthesize, StepSummarize, StepDone} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q milestone in %v", want, steps)
		}
	}
	if events[len(events)-1].pct != 100 {
		t.Errorf("final milestone must be 100, got %d", events[len(events)-1].pct)
	}
}
