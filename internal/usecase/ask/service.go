// Package ask runs the question answering pipeline end to end. Stages run
// sequentially; everything short of a token-quota rejection degrades to a
// "no data" answer instead of failing the request.
package ask

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/domain"
	"github.com/caspianlab/georag/internal/tabql"
	"github.com/caspianlab/georag/internal/usecase/answer"
)

// Pipeline steps reported to the progress sink.
const (
	StepClassify   = "classify"
	StepFormalize  = "formalize"
	StepResolve    = "resolve"
	StepSynthesize = "synthesize"
	StepSummarize  = "summarize"
	StepDone       = "done"
)

// ProgressFunc receives pipeline milestones. May be nil.
type ProgressFunc func(step string, progress int, message string)

// Result is the complete pipeline output for one question.
type Result struct {
	Answer         string              `json:"answer"`
	Coordinates    []domain.Coordinate `json:"coordinates"`
	ResultsCount   int                 `json:"results_count"`
	HasCoordinates bool                `json:"has_coordinates"`
}

// Service orchestrates the pipeline stages.
type Service struct {
	classifier  Classifier
	formalizer  Formalizer
	resolver    Resolver
	synthesizer Synthesizer
	summarizer  Summarizer
	log         *zap.Logger
}

// New wires the pipeline together.
func New(
	classifier Classifier, formalizer Formalizer, resolver Resolver,
	synthesizer Synthesizer, summarizer Summarizer, log *zap.Logger,
) *Service {
	return &Service{
		classifier:  classifier,
		formalizer:  formalizer,
		resolver:    resolver,
		synthesizer: synthesizer,
		summarizer:  summarizer,
		log:         log,
	}
}

// Ask answers one question. The only error it returns is a token-quota
// rejection; every other failure degrades inside the pipeline.
func (s *Service) Ask(ctx context.Context, question string, progress ProgressFunc) (Result, error) {
	report := func(step string, pct int, msg string) {
		if progress != nil {
			progress(step, pct, msg)
		}
	}

	report(StepClassify, 5, "Классификация запроса")
	kind := s.classifier.Classify(ctx, question)
	report(StepClassify, 15, fmt.Sprintf("Тип запроса: %s", kind))
	s.log.Info("question classified", zap.String("kind", string(kind)))

	features, err := s.collectFeatures(ctx, question, kind, report)
	if err != nil {
		return Result{}, err
	}
	report(StepResolve, 50, fmt.Sprintf("Найдено признаков: %d", len(features)))

	merged, err := s.executeFeatures(ctx, question, features, report)
	if err != nil {
		return Result{}, err
	}

	report(StepSummarize, 90, "Формирование ответа")
	text := s.summarizer.Summarize(ctx, question, merged)
	coords := answer.ExtractCoordinates(merged)

	res := Result{
		Answer:         text,
		Coordinates:    coords,
		HasCoordinates: len(coords) > 0,
	}
	if merged != nil {
		res.ResultsCount = len(merged.Rows)
	}
	report(StepDone, 100, "Готово")
	return res, nil
}

// collectFeatures unions semantically resolved features with attributes the
// formalizer pinned to exact known column names.
func (s *Service) collectFeatures(
	ctx context.Context, question string, kind domain.QueryKind, report ProgressFunc,
) ([]domain.ResolvedFeature, error) {
	seen := make(map[string]struct{})
	var features []domain.ResolvedFeature

	if kind != domain.KindSemantic {
		report(StepFormalize, 20, "Формализация запроса")
		fq := s.formalizer.Formalize(ctx, question)
		for _, a := range fq.Attributes {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			features = append(features, domain.ResolvedFeature{Name: a})
		}
	}

	report(StepResolve, 25, "Поиск релевантных признаков")
	resolved, err := s.resolver.Resolve(ctx, question,
		func(index, total int, name string, matched bool) {
			pct := 25 + 25*index/total
			verdict := "отклонён"
			if matched {
				verdict = "подтверждён"
			}
			report(StepResolve, pct, fmt.Sprintf("Признак %d/%d (%s): %s", index, total, name, verdict))
		})
	if err != nil {
		if errors.Is(err, domain.ErrTokenQuotaExceeded) {
			return nil, err
		}
		// Деградация: отвечаем по тому, что дала формализация.
		s.log.Error("feature resolution failed", zap.Error(err))
		return features, nil
	}

	for _, f := range resolved {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		features = append(features, f)
	}
	return features, nil
}

// executeFeatures runs synthesis per feature; exhausted or failed features
// contribute zero rows.
func (s *Service) executeFeatures(
	ctx context.Context, question string, features []domain.ResolvedFeature, report ProgressFunc,
) (*tabql.Result, error) {
	var results []answer.FeatureResult
	for i, f := range features {
		res, err := s.synthesizer.Synthesize(ctx, question, f)
		pct := 50 + 40*(i+1)/max(len(features), 1)
		if err != nil {
			if errors.Is(err, domain.ErrTokenQuotaExceeded) {
				return nil, err
			}
			s.log.Warn("feature skipped",
				zap.String("feature", f.Name), zap.Error(err))
			report(StepSynthesize, pct, fmt.Sprintf("Признак %q: данные не получены", f.Name))
			continue
		}
		report(StepSynthesize, pct,
			fmt.Sprintf("Признак %q: %d записей", f.Name, len(res.Rows)))
		results = append(results, answer.FeatureResult{Feature: f.Name, Table: res})
	}
	return answer.Merge(results), nil
}
