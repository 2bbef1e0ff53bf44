package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// UploadResponse is the backend's answer to an audio upload.
type UploadResponse struct {
	TaskID   FlexID `json:"task_id"`
	Filename string `json:"filename,omitempty"`
	Status   string `json:"status,omitempty"`
}

// UploadAudio posts one audio file as multipart form data bound to a case.
func (c *Client) UploadAudio(ctx context.Context, caseID, path string) (*UploadResponse, error) {
	if caseID == "" {
		return nil, fmt.Errorf("upload audio: case id required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}
	defer f.Close()
	return c.UploadAudioStream(ctx, caseID, filepath.Base(path), f)
}

// UploadAudioStream posts audio content from a reader. Split out from
// UploadAudio so tests and the folder watcher can feed in-memory data.
func (c *Client) UploadAudioStream(ctx context.Context, caseID, filename string, r io.Reader) (*UploadResponse, error) {
	var buf strings.Builder
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("upload audio: form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("upload audio: read %s: %w", filename, err)
	}
	if err := writer.WriteField("case_id", caseID); err != nil {
		return nil, fmt.Errorf("upload audio: form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("upload audio: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/audio/upload", strings.NewReader(buf.String()))
	if err != nil {
		return nil, fmt.Errorf("upload audio: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload audio: request error: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, &APIError{
			Status: resp.StatusCode,
			Method: http.MethodPost,
			Path:   "/api/v1/audio/upload",
			Body:   truncateBody(string(data), 400),
		}
	}
	var out UploadResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("upload audio: decode response: %w", err)
	}
	return &out, nil
}

// BatchResult is one file's outcome within an upload batch.
type BatchResult struct {
	Path       string
	Response   *UploadResponse
	Err        error
	Processed  *Task
	ProcessErr error
}

// UploadBatch uploads every path concurrently and treats the batch as
// all-or-nothing: when any upload fails, no task is processed and the failed
// paths are returned. When every upload succeeds and modelName is non-empty,
// processing starts for each returned task; per-task processing outcomes land
// in the results.
func (c *Client) UploadBatch(ctx context.Context, caseID, modelName string, paths []string) ([]BatchResult, []string) {
	results := make([]BatchResult, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			resp, err := c.UploadAudio(ctx, caseID, path)
			results[i] = BatchResult{Path: path, Response: resp, Err: err}
		}(i, path)
	}
	wg.Wait()

	var failed []string
	for _, r := range results {
		if r.Err != nil {
			c.logger.Printf("upload %s failed: %v", r.Path, r.Err)
			failed = append(failed, r.Path)
		}
	}
	if len(failed) > 0 || modelName == "" {
		return results, failed
	}

	for i := range results {
		taskID := results[i].Response.TaskID.String()
		if taskID == "" {
			continue
		}
		task, err := c.ProcessTask(ctx, taskID, modelName)
		results[i].Processed = task
		results[i].ProcessErr = err
		if err != nil {
			c.logger.Printf("process task %s failed: %v", taskID, err)
		}
	}
	return results, nil
}

// PublicAudioURL builds the percent-encoded public playback URL for a file.
func (c *Client) PublicAudioURL(filename string) string {
	return c.baseURL + "/api/v1/audio/public/" + url.PathEscape(filename)
}

// FileTranscript fetches the transcript for a file. The endpoint has shipped
// three response shapes over time; all are tolerated:
//
//	{"result": {"transcription": ...}} or {"result": {"text": ...}}
//	{"transcription": ...}
//	{"transcript": ...}
func (c *Client) FileTranscript(ctx context.Context, fileID string) (string, error) {
	if fileID == "" {
		return "", fmt.Errorf("file transcript: file id required")
	}
	var resp struct {
		Result *struct {
			Transcription string `json:"transcription"`
			Text          string `json:"text"`
		} `json:"result"`
		Transcription string `json:"transcription"`
		Transcript    string `json:"transcript"`
	}
	path := "/api/v1/files/" + fileID + "/transcript"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return "", fmt.Errorf("file transcript: %w", err)
	}
	if resp.Result != nil {
		if resp.Result.Transcription != "" {
			return resp.Result.Transcription, nil
		}
		if resp.Result.Text != "" {
			return resp.Result.Text, nil
		}
	}
	if resp.Transcription != "" {
		return resp.Transcription, nil
	}
	return resp.Transcript, nil
}

// DownloadFile fetches url into destDir and returns the written path. The
// remote filename is taken from the URL path.
func (c *Client) DownloadFile(ctx context.Context, fileURL, destDir string) (string, error) {
	u := fileURL
	if strings.HasPrefix(u, "/") {
		u = c.baseURL + u
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("download: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: request error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", &APIError{Status: resp.StatusCode, Method: http.MethodGet, Path: u, Body: ""}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	name := filepath.Base(strings.SplitN(u, "?", 2)[0])
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	dest := filepath.Join(destDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("download: write %s: %w", dest, err)
	}
	return dest, nil
}
