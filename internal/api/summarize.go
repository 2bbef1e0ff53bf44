package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// summarizeResponse tolerates both field names the backend has used for the
// produced text.
type summarizeResponse struct {
	Summary string `json:"summary"`
	Result  string `json:"result"`
}

func (r summarizeResponse) text() string {
	if r.Summary != "" {
		return r.Summary
	}
	return r.Result
}

// SummarizeMulti submits a batch of transcripts and returns one combined
// summary.
func (c *Client) SummarizeMulti(ctx context.Context, transcripts []string, modelName string) (string, error) {
	if len(transcripts) == 0 {
		return "", fmt.Errorf("summarize multi: no transcripts")
	}
	payload := map[string]interface{}{
		"transcripts": transcripts,
		"model_name":  modelName,
	}
	var resp summarizeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/audio/summarize-multi", nil, payload, &resp); err != nil {
		return "", fmt.Errorf("summarize multi: %w", err)
	}
	return resp.text(), nil
}

// SummarizeCase summarizes every completed transcript in a case.
func (c *Client) SummarizeCase(ctx context.Context, caseID, modelName string) (string, error) {
	if caseID == "" {
		return "", fmt.Errorf("summarize case: case id required")
	}
	payload := map[string]string{
		"case_id":    caseID,
		"model_name": modelName,
	}
	var resp summarizeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/audio/summarize-case", nil, payload, &resp); err != nil {
		return "", fmt.Errorf("summarize case: %w", err)
	}
	return resp.text(), nil
}

// AnalyzeSummary asks the backend AI endpoint for a structured context
// analysis of a raw summary. The payload shape varies between model runs, so
// it is returned raw for internal/analysis to normalize.
func (c *Client) AnalyzeSummary(ctx context.Context, summary, taskID string) (json.RawMessage, error) {
	payload := map[string]string{
		"summary": summary,
		"task_id": taskID,
	}
	var resp struct {
		ContextAnalysis json.RawMessage `json:"context_analysis"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/summaries/analyze", nil, payload, &resp); err != nil {
		return nil, fmt.Errorf("analyze summary: %w", err)
	}
	return resp.ContextAnalysis, nil
}
