// Package store persists locally-owned console data in SQLite: saved
// multi-file summaries and the operator activity log. The backend keeps the
// authoritative case/task data; nothing here shadows it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// SavedSummary is one combined summary the operator chose to keep. TaskIDs
// records which tasks it was produced from.
type SavedSummary struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ModelName string    `json:"model_name"`
	TaskIDs   []string  `json:"task_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStore opens (and migrates) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open(sqliteDriver, dbPath+"?_journal_mode=WAL&_foreign_keys=off")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS saved_summaries (
			id TEXT PRIMARY KEY,
			case_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			model_name TEXT,
			task_ids TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS activity_entries (
			id TEXT PRIMARY KEY,
			case_id TEXT,
			action TEXT NOT NULL,
			actor TEXT NOT NULL,
			details TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_summaries_case_id ON saved_summaries(case_id)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_created_at ON saved_summaries(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_case_id ON activity_entries(case_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity_entries(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_action ON activity_entries(action)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

// SaveSummary persists a combined summary and returns its id.
func (s *Store) SaveSummary(ctx context.Context, summary SavedSummary) (string, error) {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now()
	}

	taskIDs, err := json.Marshal(summary.TaskIDs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task ids: %w", err)
	}

	query := `INSERT OR REPLACE INTO saved_summaries (
		id, case_id, title, content, model_name, task_ids, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		summary.ID, summary.CaseID, summary.Title, summary.Content,
		summary.ModelName, string(taskIDs), summary.CreatedAt.Unix())
	if err != nil {
		return "", fmt.Errorf("failed to save summary: %w", err)
	}
	return summary.ID, nil
}

// ListSummaries returns a case's saved summaries, newest first.
func (s *Store) ListSummaries(ctx context.Context, caseID string) ([]SavedSummary, error) {
	query := `SELECT id, case_id, title, content, model_name, task_ids, created_at
		FROM saved_summaries WHERE case_id = ? ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []SavedSummary
	for rows.Next() {
		var summary SavedSummary
		var taskIDs string
		var createdAt int64

		err := rows.Scan(&summary.ID, &summary.CaseID, &summary.Title,
			&summary.Content, &summary.ModelName, &taskIDs, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}

		if err := json.Unmarshal([]byte(taskIDs), &summary.TaskIDs); err != nil {
			// Corrupt rows keep an empty id list rather than failing the set.
			summary.TaskIDs = nil
		}
		summary.CreatedAt = time.Unix(createdAt, 0)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}
	return summaries, nil
}

// DeleteSummary removes a saved summary.
func (s *Store) DeleteSummary(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saved_summaries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete summary %s: %w", id, err)
	}
	return nil
}
