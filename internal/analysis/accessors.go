package analysis

import (
	"strings"

	"github.com/vqhuy/casevoice-console/internal/api"
)

// EntityLabel picks the display text for an entity: label, then name, then
// type, then a generic placeholder.
func EntityLabel(e Entity) string {
	for _, s := range []string{e.Label, e.Name, e.Type} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return "entity"
}

// TranscriptText resolves a task's transcript with a fixed precedence:
// result.transcription, result.text, then the task-level transcript field.
func TranscriptText(t *api.Task) string {
	if t == nil {
		return ""
	}
	if t.Result != nil {
		if s := strings.TrimSpace(t.Result.Transcription); s != "" {
			return s
		}
		if s := strings.TrimSpace(t.Result.Text); s != "" {
			return s
		}
	}
	return strings.TrimSpace(t.Transcript)
}

// SummaryText resolves a task's summary: result.summary wins over the
// task-level summary field.
func SummaryText(t *api.Task) string {
	if t == nil {
		return ""
	}
	if t.Result != nil {
		if s := strings.TrimSpace(t.Result.Summary); s != "" {
			return s
		}
	}
	return strings.TrimSpace(t.Summary)
}
