// Package answer builds the final user-facing text from per-feature query
// results. The model gets a bounded preview of the data; coordinates are
// extracted from the full result set and must survive into the answer, a
// post-check appends them when the model drops them.
package answer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/domain"
	"github.com/caspianlab/georag/internal/tabql"
)

const (
	// DefaultPreviewRows bounds the data preview inside the summary prompt.
	DefaultPreviewRows = 10
	// maxVideoTextChars is the streaming avatar API limit.
	maxVideoTextChars = 2000
)

// Service turns query results into answers.
type Service struct {
	llm         Completer
	previewRows int
	log         *zap.Logger
}

// New creates an answer service. previewRows below 1 falls back to
// DefaultPreviewRows.
func New(llm Completer, previewRows int, log *zap.Logger) *Service {
	if previewRows < 1 {
		previewRows = DefaultPreviewRows
	}
	return &Service{llm: llm, previewRows: previewRows, log: log}
}

// Summarize produces the final answer for the merged result table. It never
// fails: LLM errors degrade to a plain data dump, and an empty table gets a
// constructive no-data explanation.
func (s *Service) Summarize(ctx context.Context, question string, merged *tabql.Result) string {
	if merged == nil || len(merged.Rows) == 0 {
		return s.noData(ctx, question)
	}

	coords := ExtractCoordinates(merged)
	data := s.preview(merged) + coordsSection(coords)

	res, err := s.llm.Complete(ctx, fmt.Sprintf(summaryPrompt, question, data))
	if err != nil {
		s.log.Error("summary generation failed", zap.Error(err))
		return fmt.Sprintf("Найдено результатов: %d\n\n%s", len(merged.Rows), data)
	}

	return ensureCoordinates(strings.TrimSpace(res.Text), coords, s.log)
}

// noData asks the model to explain the empty result constructively.
func (s *Service) noData(ctx context.Context, question string) string {
	res, err := s.llm.Complete(ctx, fmt.Sprintf(noDataPrompt, question))
	if err != nil {
		s.log.Warn("no-data explanation failed", zap.Error(err))
		return noDataFallback
	}
	return strings.TrimSpace(res.Text)
}

// VideoText prepares a short spoken-word rendition of the answer for the
// avatar. Falls back to stripping coordinate lines from the answer itself.
func (s *Service) VideoText(ctx context.Context, question, fullAnswer string, hasCoordinates bool) string {
	reminder := ""
	if hasCoordinates {
		reminder = videoCoordsReminder
	}

	var text string
	res, err := s.llm.Complete(ctx, fmt.Sprintf(videoPrompt, question, fullAnswer, reminder))
	if err != nil {
		s.log.Warn("video text generation failed, falling back to cleanup", zap.Error(err))
		text = stripCoordinateLines(fullAnswer)
	} else {
		text = stripCodeFences(strings.TrimSpace(res.Text))
	}

	if hasCoordinates {
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "карт") && !strings.Contains(lower, "координат") {
			text += " " + mapMention
		}
	}
	return truncateAtSentence(text, maxVideoTextChars)
}

// preview renders the merged table for the prompt, capped at previewRows
// but reporting the true total.
func (s *Service) preview(merged *tabql.Result) string {
	total := len(merged.Rows)
	shown := merged
	var head string
	if total > s.previewRows {
		head = fmt.Sprintf("Найдено %d записей. Показаны первые %d:\n\n", total, s.previewRows)
		shown = &tabql.Result{Columns: merged.Columns, Rows: merged.Rows[:s.previewRows]}
	}
	return head + renderTable(shown)
}

func renderTable(res *tabql.Result) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(res.Columns, " | "))
	for _, row := range res.Rows {
		sb.WriteByte('\n')
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellText(v)
		}
		sb.WriteString(strings.Join(cells, " | "))
	}
	return sb.String()
}

func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

const sectionRule = "============================================================"

// coordsSection renders the full coordinate list appended to the prompt data.
func coordsSection(coords []domain.Coordinate) string {
	if len(coords) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n" + sectionRule + "\nКООРДИНАТЫ НАЙДЕННЫХ МЕСТ:\n" + sectionRule + "\n")
	for i, c := range coords {
		fmt.Fprintf(&sb, "Место %d: Долгота: %s, Широта: %s\n",
			i+1, formatCoord(c.Lon), formatCoord(c.Lat))
	}
	sb.WriteString(sectionRule)
	return sb.String()
}

// ensureCoordinates appends the coordinate block when the model left it out.
func ensureCoordinates(answer string, coords []domain.Coordinate, log *zap.Logger) string {
	if len(coords) == 0 {
		return answer
	}
	if strings.Contains(strings.ToLower(answer), "координат") || strings.Contains(answer, "📍") {
		return answer
	}

	log.Warn("coordinates missing from generated answer, appending")
	var sb strings.Builder
	sb.WriteString(answer)
	sb.WriteString("\n\n📍 КООРДИНАТЫ:\n")
	for i, c := range coords {
		fmt.Fprintf(&sb, "• %d: Долгота: %s, Широта: %s\n",
			i+1, formatCoord(c.Lon), formatCoord(c.Lat))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// stripCoordinateLines drops coordinate-looking lines so the fallback video
// text stays speakable.
func stripCoordinateLines(answer string) string {
	var kept []string
	for _, line := range strings.Split(answer, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(line, "📍") || strings.Contains(lower, "координат") ||
			strings.Contains(lower, "долгота") || strings.Contains(lower, "широта") ||
			strings.Contains(lower, "lon:") || strings.Contains(lower, "lat:") {
			continue
		}
		if strings.Contains(line, ",") && len(strings.TrimSpace(line)) < 50 && containsDigit(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// truncateAtSentence cuts text to limit, preferring the last sentence
// boundary in the kept part.
func truncateAtSentence(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	// Не режем посередине UTF-8 последовательности.
	for len(cut) > 0 && cut[len(cut)-1]&0xC0 == 0x80 {
		cut = cut[:len(cut)-1]
	}

	best := -1
	for _, end := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if i := strings.LastIndex(cut, end); i > best {
			best = i
		}
	}
	if best > int(float64(limit)*0.7) {
		return cut[:best+1]
	}
	return cut
}
