package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListTasks fetches tasks, optionally filtered by date (YYYY-MM-DD) and/or
// case id. Both filters are optional query parameters.
func (c *Client) ListTasks(ctx context.Context, date, caseID string) ([]Task, error) {
	query := url.Values{}
	if date != "" {
		query.Set("date", date)
	}
	if caseID != "" {
		query.Set("case_id", caseID)
	}
	var tasks []Task
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/audio/tasks", query, nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask fetches a single task including its result payload.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("get task: task id required")
	}
	var task Task
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/audio/tasks/"+taskID, nil, nil, &task); err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// ProcessTask starts transcription + summarization for a previously uploaded
// task using the given model.
func (c *Client) ProcessTask(ctx context.Context, taskID, modelName string) (*Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("process task: task id required")
	}
	payload := map[string]string{"model_name": modelName}
	var task Task
	path := "/api/v1/audio/process-task/" + taskID
	if err := c.doJSON(ctx, http.MethodPost, path, nil, payload, &task); err != nil {
		return nil, fmt.Errorf("process task: %w", err)
	}
	return &task, nil
}

// UpdateTaskContext saves a user-supplied context prompt for later
// resummarization runs.
func (c *Client) UpdateTaskContext(ctx context.Context, taskID, prompt string) error {
	if taskID == "" {
		return fmt.Errorf("update task context: task id required")
	}
	payload := map[string]string{"user_context_prompt": prompt}
	path := "/api/v1/audio/tasks/" + taskID + "/context"
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, payload, nil); err != nil {
		return fmt.Errorf("update task context: %w", err)
	}
	return nil
}

// ResummarizeTask asks the backend to regenerate the task summary, taking any
// saved context prompt into account. Returns the new summary text.
func (c *Client) ResummarizeTask(ctx context.Context, taskID string) (string, error) {
	if taskID == "" {
		return "", fmt.Errorf("resummarize task: task id required")
	}
	var resp struct {
		Summary string `json:"summary"`
	}
	path := "/api/v1/audio/tasks/" + taskID + "/resummarize"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil, &resp); err != nil {
		return "", fmt.Errorf("resummarize task: %w", err)
	}
	return resp.Summary, nil
}
