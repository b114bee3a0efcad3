package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/domain"
	"github.com/caspianlab/georag/internal/tabql"
)

type mockCompleter struct {
	text    string
	err     error
	prompts []string
}

func (m *mockCompleter) Complete(_ context.Context, prompt string) (domain.CompletionResult, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return domain.CompletionResult{}, m.err
	}
	return domain.CompletionResult{Text: m.text}, nil
}

func resultWithCoords() *tabql.Result {
	return &tabql.Result{
		Columns: []string{"Регион", "Rо,%", "lon", "lat", MatchedFeatureColumn},
		Rows: [][]any{
			{"Южный Каспий", 1.4, 50.5, 40.2, "Rо,%"},
			{"Северный Каспий", 0.8, "[44.3, 48.0]", "[44.3, 48.0]", "Rо,%"},
			{"Без координат", 1.1, nil, nil, "Rо,%"},
		},
	}
}

func TestMerge_UnionColumnsAndFeatureTag(t *testing.T) {
	merged := Merge([]FeatureResult{
		{Feature: "Rо,%", Table: &tabql.Result{
			Columns: []string{"Скважина", "Rо,%"},
			Rows:    [][]any{{"A-1", 1.2}},
		}},
		{Feature: "Сорг,%", Table: &tabql.Result{
			Columns: []string{"Скважина", "Сорг,%"},
			Rows:    [][]any{{"B-1", 3.4}},
		}},
	})

	want := []string{"Скважина", "Rо,%", "Сорг,%", MatchedFeatureColumn}
	if len(merged.Columns) != len(want) {
		t.Fatalf("unexpected columns %v", merged.Columns)
	}
	for i, c := range want {
		if merged.Columns[i] != c {
			t.Fatalf("unexpected columns %v", merged.Columns)
		}
	}
	if len(merged.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(merged.Rows))
	}
	// Колонка чужого признака остаётся NULL.
	if merged.Rows[0][2] != nil {
		t.Errorf("expected nil for missing column, got %v", merged.Rows[0][2])
	}
	if merged.Rows[0][3] != "Rо,%" || merged.Rows[1][3] != "Сорг,%" {
		t.Errorf("feature tags wrong: %v", merged.Rows)
	}
}

func TestMerge_Empty(t *testing.T) {
	merged := Merge(nil)
	if len(merged.Columns) != 0 || len(merged.Rows) != 0 {
		t.Errorf("expected empty result, got %+v", merged)
	}
}

func TestExtractCoordinates(t *testing.T) {
	coords := ExtractCoordinates(resultWithCoords())
	if len(coords) != 2 {
		t.Fatalf("expected 2 coordinates, got %v", coords)
	}
	if coords[0].Lon != 50.5 || coords[0].Lat != 40.2 {
		t.Errorf("unexpected first point %+v", coords[0])
	}
	// Из массива берётся первый элемент для долготы и последний для широты.
	if coords[1].Lon != 44.3 || coords[1].Lat != 48.0 {
		t.Errorf("unexpected array point %+v", coords[1])
	}
	if !strings.Contains(coords[0].Info, "Регион: Южный Каспий") {
		t.Errorf("info must describe the row, got %q", coords[0].Info)
	}
	if !strings.Contains(coords[0].Info, "matched_feature: Rо,%") {
		t.Errorf("info must carry the feature, got %q", coords[0].Info)
	}
}

func TestExtractCoordinates_OutOfRange(t *testing.T) {
	res := &tabql.Result{
		Columns: []string{"lon", "lat"},
		Rows:    [][]any{{250.0, 40.0}, {50.0, 95.0}},
	}
	if coords := ExtractCoordinates(res); len(coords) != 0 {
		t.Errorf("expected out-of-range points dropped, got %v", coords)
	}
}

func TestExtractCoordinates_NoColumns(t *testing.T) {
	res := &tabql.Result{Columns: []string{"Регион"}, Rows: [][]any{{"Южный"}}}
	if coords := ExtractCoordinates(res); coords != nil {
		t.Errorf("expected nil without lon/lat columns, got %v", coords)
	}
}

func TestSummarize_PromptCarriesDataAndCoords(t *testing.T) {
	llm := &mockCompleter{text: "Ответ. 📍 КООРДИНАТЫ: Долгота: 50.5, Широта: 40.2"}
	svc := New(llm, 10, zap.NewNop())

	answer := svc.Summarize(context.Background(), "Где зрелая нефть?", resultWithCoords())
	if !strings.Contains(answer, "📍") {
		t.Errorf("unexpected answer %q", answer)
	}
	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "Где зрелая нефть?") {
		t.Errorf("prompt must contain the question")
	}
	if !strings.Contains(prompt, "КООРДИНАТЫ НАЙДЕННЫХ МЕСТ") {
		t.Errorf("prompt must contain the coordinate section:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Южный Каспий") {
		t.Errorf("prompt must contain the data preview:\n%s", prompt)
	}
}

func TestSummarize_AppendsDroppedCoordinates(t *testing.T) {
	llm := &mockCompleter{text: "Зрелая нефть встречается в южной части."}
	svc := New(llm, 10, zap.NewNop())

	answer := svc.Summarize(context.Background(), "вопрос", resultWithCoords())
	if !strings.Contains(answer, "📍 КООРДИНАТЫ:") {
		t.Fatalf("coordinates must be appended, got %q", answer)
	}
	if !strings.Contains(answer, "Долгота: 50.5, Широта: 40.2") {
		t.Errorf("appended block must list the points, got %q", answer)
	}
}

func TestSummarize_KeepsAnswerWhenCoordsMentioned(t *testing.T) {
	llm := &mockCompleter{text: "Координаты точек: 50.5, 40.2."}
	svc := New(llm, 10, zap.NewNop())

	answer := svc.Summarize(context.Background(), "вопрос", resultWithCoords())
	if strings.Contains(answer, "📍 КООРДИНАТЫ:") {
		t.Errorf("no forced block expected, got %q", answer)
	}
}

func TestSummarize_PreviewCapsRows(t *testing.T) {
	rows := make([][]any, 25)
	for i := range rows {
		rows[i] = []any{float64(i)}
	}
	merged := &tabql.Result{Columns: []string{"Глубина, м"}, Rows: rows}

	llm := &mockCompleter{text: "ок, координаты отсутствуют"}
	svc := New(llm, 10, zap.NewNop())
	svc.Summarize(context.Background(), "вопрос", merged)

	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "Найдено 25 записей. Показаны первые 10:") {
		t.Errorf("prompt must report the true total:\n%s", prompt)
	}
	if strings.Contains(prompt, "\n24") {
		t.Errorf("rows beyond the preview must not leak into the prompt")
	}
}

func TestSummarize_LLMErrorFallsBackToDataDump(t *testing.T) {
	svc := New(&mockCompleter{err: errors.New("unavailable")}, 10, zap.NewNop())

	answer := svc.Summarize(context.Background(), "вопрос", resultWithCoords())
	if !strings.Contains(answer, "Найдено результатов: 3") {
		t.Errorf("fallback must report the row count, got %q", answer)
	}
	if !strings.Contains(answer, "КООРДИНАТЫ НАЙДЕННЫХ МЕСТ") {
		t.Errorf("fallback must keep coordinates, got %q", answer)
	}
}

func TestSummarize_NoData(t *testing.T) {
	llm := &mockCompleter{text: "Данных нет, попробуйте сузить запрос до конкретного региона."}
	svc := New(llm, 10, zap.NewNop())

	answer := svc.Summarize(context.Background(), "вопрос", &tabql.Result{})
	if answer != "Данных нет, попробуйте сузить запрос до конкретного региона." {
		t.Errorf("unexpected answer %q", answer)
	}
	if !strings.Contains(llm.prompts[0], "данные в базе не найдены") {
		t.Errorf("expected no-data prompt, got:\n%s", llm.prompts[0])
	}
}

func TestSummarize_NoDataLLMError(t *testing.T) {
	svc := New(&mockCompleter{err: errors.New("unavailable")}, 10, zap.NewNop())

	answer := svc.Summarize(context.Background(), "вопрос", nil)
	if answer != noDataFallback {
		t.Errorf("expected canned fallback, got %q", answer)
	}
}

func TestVideoText_EnforcesMapMention(t *testing.T) {
	llm := &mockCompleter{text: "Зрелая нефть найдена в южной части Каспия."}
	svc := New(llm, 10, zap.NewNop())

	text := svc.VideoText(context.Background(), "вопрос", "полный ответ", true)
	if !strings.Contains(text, "Координаты места можно увидеть на карте.") {
		t.Errorf("map mention must be enforced, got %q", text)
	}
	if !strings.Contains(llm.prompts[0], "обязательно упомяни") {
		t.Errorf("prompt must carry the coordinates reminder")
	}
}

func TestVideoText_NoMentionWithoutCoordinates(t *testing.T) {
	llm := &mockCompleter{text: "Зрелая нефть найдена в южной части Каспия."}
	svc := New(llm, 10, zap.NewNop())

	text := svc.VideoText(context.Background(), "вопрос", "полный ответ", false)
	if strings.Contains(text, "на карте") {
		t.Errorf("unexpected map mention %q", text)
	}
}

func TestVideoText_FallbackStripsCoordinates(t *testing.T) {
	full := "Зрелая нефть в южной части.\n📍 КООРДИНАТЫ: Долгота: 50.5, Широта: 40.2\nГлубины превышают две тысячи метров."
	svc := New(&mockCompleter{err: errors.New("unavailable")}, 10, zap.NewNop())

	text := svc.VideoText(context.Background(), "вопрос", full, true)
	if strings.Contains(text, "📍") || strings.Contains(text, "Долгота") {
		t.Errorf("coordinate lines must be stripped, got %q", text)
	}
	if !strings.Contains(text, "Координаты места можно увидеть на карте.") {
		t.Errorf("map mention must be enforced in fallback, got %q", text)
	}
}

func TestTruncateAtSentence(t *testing.T) {
	sentence := "Это предложение про геологию Каспийского моря. "
	long := strings.Repeat(sentence, 100)

	got := truncateAtSentence(long, maxVideoTextChars)
	if len(got) > maxVideoTextChars {
		t.Fatalf("text exceeds the limit: %d", len(got))
	}
	if !strings.HasSuffix(got, ".") {
		t.Errorf("text must end at a sentence boundary, got %q", got[len(got)-20:])
	}

	short := "Короткий текст."
	if truncateAtSentence(short, maxVideoTextChars) != short {
		t.Errorf("short text must pass through unchanged")
	}
}
