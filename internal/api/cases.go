package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ListCases fetches all cases.
func (c *Client) ListCases(ctx context.Context) ([]Case, error) {
	var cases []Case
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/cases", nil, nil, &cases); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

// CreateCase creates a new case with a title and optional description.
// The create route uses the trailing-slash variant.
func (c *Client) CreateCase(ctx context.Context, title, description string) (*Case, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("create case: title required")
	}
	payload := map[string]string{
		"title":       title,
		"description": description,
	}
	var created Case
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/cases/", nil, payload, &created); err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}
	return &created, nil
}

// ListCaseFiles fetches the audio files attached to a case.
func (c *Client) ListCaseFiles(ctx context.Context, caseID string) ([]AudioFile, error) {
	if caseID == "" {
		return nil, fmt.Errorf("list case files: case id required")
	}
	var files []AudioFile
	path := "/api/v1/cases/" + caseID + "/files"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &files); err != nil {
		return nil, fmt.Errorf("list case files: %w", err)
	}
	return files, nil
}
