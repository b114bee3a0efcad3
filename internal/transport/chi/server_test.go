package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/domain"
	"github.com/caspianlab/georag/internal/usecase/ask"
	healthuc "github.com/caspianlab/georag/internal/usecase/health"
	"github.com/caspianlab/georag/internal/usecase/progress"
	usageuc "github.com/caspianlab/georag/internal/usecase/usage"
)

type mockAsker struct {
	result ask.Result
	err    error
}

func (m *mockAsker) Ask(_ context.Context, _ string, p ask.ProgressFunc) (ask.Result, error) {
	if p != nil {
		p(ask.StepClassify, 10, "Классификация запроса")
		p(ask.StepDone, 100, "Готово")
	}
	return m.result, m.err
}

type mockVideo struct{ text string }

func (m *mockVideo) VideoText(context.Context, string, string, bool) string { return m.text }

type mockUsage struct{ report usageuc.Report }

func (m *mockUsage) GetReport(_ context.Context, period usageuc.Period) usageuc.Report {
	m.report.Period = period
	return m.report
}

type mockHealth struct{ report healthuc.Report }

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func testServer(a asker) (*Server, http.Handler) {
	s := NewServer(
		a,
		&mockVideo{text: "Текст для аватара."},
		progress.NewRegistry(time.Minute, zap.NewNop()),
		&mockUsage{},
		&mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
		zap.NewNop(),
	)
	return s, s.Router(nil)
}

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHandleQuery_OK(t *testing.T) {
	_, h := testServer(&mockAsker{result: ask.Result{
		Answer:         "Зрелая нефть в южной части.",
		Coordinates:    []domain.Coordinate{{Lon: 50.5, Lat: 40.2, Info: "Регион: Южный Каспий"}},
		ResultsCount:   3,
		HasCoordinates: true,
	}})

	rr := postJSON(h, "/api/query", `{"query": "Где R0 > 1.0%?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var res ask.Result
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ResultsCount != 3 || !res.HasCoordinates || len(res.Coordinates) != 1 {
		t.Errorf("unexpected response %+v", res)
	}
}

func TestHandleQuery_EmptyQuestion(t *testing.T) {
	_, h := testServer(&mockAsker{})

	rr := postJSON(h, "/api/query", `{"query": "   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rr.Code)
	}
}

func TestHandleQuery_BadJSON(t *testing.T) {
	_, h := testServer(&mockAsker{})

	rr := postJSON(h, "/api/query", `{"query": `)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rr.Code)
	}
}

func TestHandleQuery_QuotaExceeded(t *testing.T) {
	_, h := testServer(&mockAsker{err: domain.ErrTokenQuotaExceeded})

	rr := postJSON(h, "/api/query", `{"query": "вопрос"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429", rr.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Клиент видит человеческое сообщение, не текст ошибки.
	if strings.Contains(resp.Message, "token quota") {
		t.Errorf("raw error leaked to client: %q", resp.Message)
	}
}

func TestHandleQueryAsync_Lifecycle(t *testing.T) {
	s, h := testServer(&mockAsker{result: ask.Result{Answer: "ответ", ResultsCount: 1}})

	rr := postJSON(h, "/api/query/async", `{"query": "вопрос"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("got %d, want 202: %s", rr.Code, rr.Body.String())
	}

	var resp asyncResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("job_id must be returned")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec, ok := s.jobs.Get(resp.JobID)
		if ok && rec.Status == progress.StatusDone {
			if rec.Progress != 100 || rec.Result == nil {
				t.Errorf("unexpected finished record %+v", rec)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never finished: %+v", rec)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandleProgress_UnknownJob(t *testing.T) {
	_, h := testServer(&mockAsker{})

	req := httptest.NewRequest("GET", "/api/progress/нет-такого", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
}

func TestHandleVideoText(t *testing.T) {
	_, h := testServer(&mockAsker{})

	rr := postJSON(h, "/api/video-text",
		`{"query": "вопрос", "answer": "полный ответ", "has_coordinates": true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}

	var resp videoTextResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.VideoText != "Текст для аватара." {
		t.Errorf("unexpected text %q", resp.VideoText)
	}
}

func TestHandleVideoText_MissingAnswer(t *testing.T) {
	_, h := testServer(&mockAsker{})

	rr := postJSON(h, "/api/video-text", `{"query": "вопрос"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rr.Code)
	}
}

func TestHandleUsage_PeriodParam(t *testing.T) {
	_, h := testServer(&mockAsker{})

	req := httptest.NewRequest("GET", "/api/usage?period=month", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
	var report usageuc.Report
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Period != usageuc.PeriodMonth {
		t.Errorf("unexpected period %q", report.Period)
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	s := NewServer(
		&mockAsker{}, &mockVideo{}, progress.NewRegistry(time.Minute, zap.NewNop()),
		&mockUsage{},
		&mockHealth{report: healthuc.Report{Status: healthuc.Degraded}},
		zap.NewNop(),
	)
	h := s.Router(nil)

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want 503", rr.Code)
	}
}
