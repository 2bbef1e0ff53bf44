package api

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexID tolerates backends that serialize identifiers as either JSON
// strings or numbers and always exposes them as strings.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*f = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = FlexID(v)
		return nil
	}
	// Numeric id: keep integer formatting stable (no exponent, no trailing zeros).
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexID(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f FlexID) String() string { return string(f) }

// Case is an investigative folder grouping audio files and their tasks.
type Case struct {
	ID          FlexID   `json:"id"`
	CaseCode    string   `json:"case_code"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	StatusID    FlexID   `json:"status_id,omitempty"`
	PriorityID  FlexID   `json:"priority_id,omitempty"`
	CreatedBy   string   `json:"created_by,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	Summaries   []string `json:"summaries,omitempty"`
	Transcripts []string `json:"transcripts,omitempty"`
}

// AudioFile is one uploaded audio file within a case.
type AudioFile struct {
	ID       FlexID `json:"id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	URL      string `json:"url"`
	TaskID   FlexID `json:"task_id,omitempty"`
}

// Task status values owned by the backend. The client only observes them.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Task is one audio file's processing job (transcription + summarization).
type Task struct {
	ID         FlexID      `json:"id"`
	Status     string      `json:"status"`
	Filename   string      `json:"filename"`
	Result     *TaskResult `json:"result,omitempty"`
	CreatedAt  string      `json:"created_at,omitempty"`
	UpdatedAt  string      `json:"updated_at,omitempty"`
	CaseID     FlexID      `json:"case_id,omitempty"`
	Summary    string      `json:"summary,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
}

// TaskResult is the processing payload attached to a completed task.
// ContextAnalysis is kept raw: the backend emits it as either a JSON object
// or a JSON-encoded string, and internal/analysis owns the decoding.
type TaskResult struct {
	TaskID            FlexID          `json:"task_id,omitempty"`
	Transcription     string          `json:"transcription,omitempty"`
	Text              string          `json:"text,omitempty"`
	Summary           string          `json:"summary,omitempty"`
	ContextAnalysis   json.RawMessage `json:"context_analysis,omitempty"`
	UserContextPrompt string          `json:"user_context_prompt,omitempty"`
}

// InFlight reports whether the status still needs polling.
func InFlight(status string) bool {
	switch status {
	case "", StatusPending, StatusProcessing:
		return true
	}
	return false
}

// Terminal reports whether the status can no longer change.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
