// Package chi exposes the question answering pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/domain"
	"github.com/caspianlab/georag/internal/metrics"
	"github.com/caspianlab/georag/internal/usecase/ask"
	healthuc "github.com/caspianlab/georag/internal/usecase/health"
	"github.com/caspianlab/georag/internal/usecase/progress"
	usageuc "github.com/caspianlab/georag/internal/usecase/usage"
)

// asyncJobTimeout bounds one background pipeline run.
const asyncJobTimeout = 10 * time.Minute

const maxQuestionLen = 2000

// asker runs the pipeline for one question.
type asker interface {
	Ask(ctx context.Context, question string, progress ask.ProgressFunc) (ask.Result, error)
}

// videoTexter prepares the avatar voice-over text.
type videoTexter interface {
	VideoText(ctx context.Context, question, fullAnswer string, hasCoordinates bool) string
}

// usageReader reports token budget consumption.
type usageReader interface {
	GetReport(ctx context.Context, period usageuc.Period) usageuc.Report
}

// healthChecker reports dependency health.
type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server wires the use cases into a chi router.
type Server struct {
	pipeline asker
	video    videoTexter
	jobs     *progress.Registry
	usage    usageReader
	health   healthChecker
	logger   *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(
	pipeline asker, video videoTexter, jobs *progress.Registry,
	usage usageReader, health healthChecker, logger *zap.Logger,
) *Server {
	return &Server{
		pipeline: pipeline,
		video:    video,
		jobs:     jobs,
		usage:    usage,
		health:   health,
		logger:   logger,
	}
}

// Router builds the route tree with the standard middleware stack.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(jsonRecoverer(s.logger))
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Post("/api/query", s.handleQuery)
	r.Post("/api/query/async", s.handleQueryAsync)
	r.Get("/api/progress/{id}", s.handleProgress)
	r.Post("/api/video-text", s.handleVideoText)
	r.Get("/api/usage", s.handleUsage)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	question, ok := s.readQuestion(w, r)
	if !ok {
		return
	}

	res, err := s.pipeline.Ask(r.Context(), question, nil)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type asyncResponse struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleQueryAsync(w http.ResponseWriter, r *http.Request) {
	question, ok := s.readQuestion(w, r)
	if !ok {
		return
	}

	id := s.jobs.Create()
	go s.runJob(id, question)

	writeJSON(w, http.StatusAccepted, asyncResponse{JobID: id})
}

// runJob executes the pipeline outside the request lifetime.
func (s *Server) runJob(id, question string) {
	ctx, cancel := context.WithTimeout(context.Background(), asyncJobTimeout)
	defer cancel()

	res, err := s.pipeline.Ask(ctx, question, func(step string, pct int, msg string) {
		s.jobs.Update(id, step, pct, msg)
	})
	if err != nil {
		s.logger.Error("async pipeline failed", zap.String("job_id", id), zap.Error(err))
		s.jobs.Fail(id, userMessage(err))
		return
	}
	s.jobs.Done(id, res)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.jobs.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job_not_found", "Задача не найдена или уже удалена")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type videoTextRequest struct {
	Query          string `json:"query"`
	Answer         string `json:"answer"`
	HasCoordinates bool   `json:"has_coordinates"`
}

type videoTextResponse struct {
	VideoText string `json:"video_text"`
}

func (s *Server) handleVideoText(w http.ResponseWriter, r *http.Request) {
	var req videoTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Некорректное тело запроса")
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Поле answer обязательно")
		return
	}

	text := s.video.VideoText(r.Context(), req.Query, req.Answer, req.HasCoordinates)
	writeJSON(w, http.StatusOK, videoTextResponse{VideoText: text})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	period := usageuc.PeriodDay
	if p := r.URL.Query().Get("period"); p != "" {
		period = usageuc.Period(p)
	}
	writeJSON(w, http.StatusOK, s.usage.GetReport(r.Context(), period))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// readQuestion decodes and validates the {query} body.
func (s *Server) readQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Некорректное тело запроса")
		return "", false
	}
	question := strings.TrimSpace(req.Query)
	if question == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Поле query обязательно")
		return "", false
	}
	if len(question) > maxQuestionLen {
		writeError(w, http.StatusBadRequest, "validation_failed", "Запрос слишком длинный")
		return "", false
	}
	return question, true
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// userMessage maps an error to a client-safe natural-language message.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenQuotaExceeded):
		return "Превышен лимит токенов. Попробуйте повторить запрос позже."
	case errors.Is(err, context.DeadlineExceeded):
		return "Обработка запроса заняла слишком много времени."
	default:
		return "Не удалось обработать запрос. Попробуйте ещё раз."
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrTokenQuotaExceeded) {
		writeError(w, http.StatusTooManyRequests, "token_quota_exceeded", userMessage(err))
		return
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", userMessage(err))
}
