package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, nil)
}

func TestListCases(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/cases", r.URL.Path)
		io.WriteString(w, `[{"id": 7, "case_code": "VC-007", "title": "Vehicle Theft"}]`)
	})

	cases, err := client.ListCases(context.Background())
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "7", cases[0].ID.String())
	assert.Equal(t, "VC-007", cases[0].CaseCode)
	assert.Equal(t, "Vehicle Theft", cases[0].Title)
}

func TestCreateCaseUsesTrailingSlash(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/cases/", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Fraud", body["title"])
		assert.Equal(t, "wire fraud ring", body["description"])

		io.WriteString(w, `{"id": "c1", "case_code": "VC-008", "title": "Fraud"}`)
	})

	created, err := client.CreateCase(context.Background(), "Fraud", "wire fraud ring")
	require.NoError(t, err)
	assert.Equal(t, "c1", created.ID.String())
}

func TestCreateCaseRequiresTitle(t *testing.T) {
	client := NewClient("http://unused", time.Second, nil)
	_, err := client.CreateCase(context.Background(), "  ", "desc")
	require.Error(t, err)
}

func TestListTasksQueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/audio/tasks", r.URL.Path)
		assert.Equal(t, "2026-08-31", r.URL.Query().Get("date"))
		assert.Equal(t, "c1", r.URL.Query().Get("case_id"))
		io.WriteString(w, `[{"id": 1, "status": "completed", "filename": "a.wav", "case_id": 9}]`)
	})

	tasks, err := client.ListTasks(context.Background(), "2026-08-31", "c1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "1", tasks[0].ID.String())
	assert.Equal(t, "9", tasks[0].CaseID.String())
}

func TestListTasksNoFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		io.WriteString(w, `[]`)
	})

	tasks, err := client.ListTasks(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestUploadAudioStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "c1", r.FormValue("case_id"))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "call.wav", header.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "audio-bytes", string(data))

		io.WriteString(w, `{"task_id": 42, "status": "pending"}`)
	})

	resp, err := client.UploadAudioStream(context.Background(), "c1", "call.wav", strings.NewReader("audio-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "42", resp.TaskID.String())
	assert.Equal(t, "pending", resp.Status)
}

func TestUploadBatchAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.wav")
	bad := filepath.Join(dir, "bad.wav")
	require.NoError(t, os.WriteFile(good, []byte("audio"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("audio"), 0o644))

	var mu sync.Mutex
	processed := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/v1/audio/process-task/") {
			mu.Lock()
			processed++
			mu.Unlock()
			io.WriteString(w, `{"id": 1, "status": "processing"}`)
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		if header.Filename == "bad.wav" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"task_id": 1, "status": "pending"}`)
	})

	results, failed := client.UploadBatch(context.Background(), "c1", "gemma2:9b", []string{good, bad})
	require.Len(t, results, 2)
	// One upload failed, so the whole batch stops before processing.
	require.Len(t, failed, 1)
	assert.Equal(t, bad, failed[0])
	assert.Zero(t, processed, "a partial failure must not start any processing")
}

func TestUploadBatchProcessesAfterFullSuccess(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.wav"), filepath.Join(dir, "b.wav")}
	for _, p := range paths {
		require.NoError(t, os.WriteFile(p, []byte("audio"), 0o644))
	}

	var mu sync.Mutex
	uploads, processed := 0, 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if strings.HasPrefix(r.URL.Path, "/api/v1/audio/process-task/") {
			processed++
			io.WriteString(w, `{"id": 7, "status": "processing"}`)
			return
		}
		uploads++
		io.WriteString(w, `{"task_id": 7, "status": "pending"}`)
	})

	results, failed := client.UploadBatch(context.Background(), "c1", "gemma2:9b", paths)
	require.Empty(t, failed)
	require.Len(t, results, 2)
	assert.Equal(t, 2, uploads)
	assert.Equal(t, 2, processed)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.NoError(t, r.ProcessErr)
		require.NotNil(t, r.Processed)
		assert.Equal(t, StatusProcessing, r.Processed.Status)
	}
}

func TestUploadBatchSkipsProcessingWithoutModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wav")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.False(t, strings.HasPrefix(r.URL.Path, "/api/v1/audio/process-task/"))
		io.WriteString(w, `{"task_id": 7, "status": "pending"}`)
	})

	results, failed := client.UploadBatch(context.Background(), "c1", "", []string{path})
	require.Empty(t, failed)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Processed)
}

func TestFileTranscriptShapes(t *testing.T) {
	shapes := map[string]string{
		`{"result": {"transcription": "hello"}}`: "hello",
		`{"result": {"text": "hello"}}`:          "hello",
		`{"transcription": "hello"}`:             "hello",
		`{"transcript": "hello"}`:                "hello",
		`{}`:                                     "",
	}
	for body, want := range shapes {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		})
		got, err := client.FileTranscript(context.Background(), "f1")
		require.NoError(t, err, "body %s", body)
		assert.Equal(t, want, got, "body %s", body)
	}
}

func TestAPIErrorTruncatesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, strings.Repeat("x", 2000))
	})

	_, err := client.ListCases(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.LessOrEqual(t, len(apiErr.Body), 400)
	assert.True(t, strings.HasSuffix(apiErr.Body, "..."))
}

func TestPublicAudioURLEscapesFilename(t *testing.T) {
	client := NewClient("http://backend:8000/", time.Second, nil)
	got := client.PublicAudioURL("phone call 01.wav")
	assert.Equal(t, "http://backend:8000/api/v1/audio/public/phone%20call%2001.wav", got)
}

func TestResummarizeTask(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/audio/tasks/t9/resummarize", r.URL.Path)
		io.WriteString(w, `{"summary": "revised"}`)
	})

	summary, err := client.ResummarizeTask(context.Background(), "t9")
	require.NoError(t, err)
	assert.Equal(t, "revised", summary)
}

func TestSummarizeMultiResultFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gemma2:9b", body["model_name"])
		io.WriteString(w, `{"result": "combined"}`)
	})

	got, err := client.SummarizeMulti(context.Background(), []string{"t1", "t2"}, "gemma2:9b")
	require.NoError(t, err)
	assert.Equal(t, "combined", got)
}

func TestAnalyzeSummaryReturnsRawPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/summaries/analyze", r.URL.Path)
		io.WriteString(w, `{"context_analysis": {"sentiment": "neutral"}}`)
	})

	raw, err := client.AnalyzeSummary(context.Background(), "some summary", "t1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sentiment": "neutral"}`, string(raw))
}

func TestUpdateTaskContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/audio/tasks/t3/context", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "focus on payments", body["user_context_prompt"])
		io.WriteString(w, `{}`)
	})

	require.NoError(t, client.UpdateTaskContext(context.Background(), "t3", "focus on payments"))
}
