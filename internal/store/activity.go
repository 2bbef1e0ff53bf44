package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivityEntry records one operator action: uploads, processing triggers,
// summarize runs, downloads. CaseID may be empty for global actions.
type ActivityEntry struct {
	ID        string                 `json:"id"`
	CaseID    string                 `json:"case_id,omitempty"`
	Action    string                 `json:"action"`
	Actor     string                 `json:"actor"`
	Details   map[string]interface{} `json:"details"`
	CreatedAt time.Time              `json:"created_at"`
}

// Activity actions.
const (
	ActionUpload       = "upload"
	ActionProcess      = "process"
	ActionSummarize    = "summarize"
	ActionSaveSummary  = "save_summary"
	ActionDownload     = "download"
	ActionCreateCase   = "create_case"
	ActionWatchIngest  = "watch_ingest"
	ActionResummarize  = "resummarize"
	ActionAnalyze      = "analyze"
	ActionUpdatePrompt = "update_prompt"
)

// AddActivity appends one entry to the activity log.
func (s *Store) AddActivity(ctx context.Context, entry ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Details == nil {
		entry.Details = map[string]interface{}{}
	}

	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal activity details: %w", err)
	}

	query := `INSERT INTO activity_entries (
		id, case_id, action, actor, details, created_at
	) VALUES (?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.CaseID, entry.Action, entry.Actor,
		string(detailsJSON), entry.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert activity entry: %w", err)
	}
	return nil
}

// GetActivity retrieves activity entries, optionally scoped to a case,
// newest first.
func (s *Store) GetActivity(ctx context.Context, caseID string, limit int) ([]ActivityEntry, error) {
	query := `SELECT id, case_id, action, actor, details, created_at
		FROM activity_entries`
	args := []interface{}{}
	if caseID != "" {
		query += ` WHERE case_id = ?`
		args = append(args, caseID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity entries: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var entry ActivityEntry
		var detailsJSON string
		var createdAt int64

		err := rows.Scan(&entry.ID, &entry.CaseID, &entry.Action,
			&entry.Actor, &detailsJSON, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}

		if err := json.Unmarshal([]byte(detailsJSON), &entry.Details); err != nil {
			entry.Details = map[string]interface{}{"raw": detailsJSON}
		}
		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, entry)
	}
	return entries, nil
}

// LogAction is the convenience form used by the UI and CLI.
func (s *Store) LogAction(ctx context.Context, caseID, action, actor string, details map[string]interface{}) error {
	return s.AddActivity(ctx, ActivityEntry{
		CaseID:  caseID,
		Action:  action,
		Actor:   actor,
		Details: details,
	})
}
