package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vqhuy/casevoice-console/internal/api"
)

type fakeUploader struct {
	mu        sync.Mutex
	uploads   []string
	processed []string
}

func (f *fakeUploader) UploadAudio(ctx context.Context, caseID, path string) (*api.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, filepath.Base(path))
	return &api.UploadResponse{TaskID: "t1", Status: "pending"}, nil
}

func (f *fakeUploader) ProcessTask(ctx context.Context, taskID, modelName string) (*api.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, taskID)
	return &api.Task{ID: api.FlexID(taskID), Status: api.StatusProcessing}, nil
}

func TestOneShotUploadsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "call.wav"), []byte("audio"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "voicemail.mp3"), []byte("audio"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0644))

	uploader := &fakeUploader{}
	w, err := New(uploader, nil, nil, Options{Dir: dir, CaseID: "c1"})
	require.NoError(t, err)

	require.NoError(t, w.Run(context.Background()))

	assert.ElementsMatch(t, []string{"call.wav", "voicemail.mp3"}, uploader.uploads)
	uploaded, errs := w.Stats()
	assert.Equal(t, 2, uploaded)
	assert.Zero(t, errs)
}

func TestOneShotTriggersProcessingWithModel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "call.wav"), []byte("audio"), 0644))

	uploader := &fakeUploader{}
	w, err := New(uploader, nil, nil, Options{Dir: dir, CaseID: "c1", ModelName: "gemma2:9b"})
	require.NoError(t, err)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, []string{"t1"}, uploader.processed)
}

func TestNewRequiresDirAndCase(t *testing.T) {
	_, err := New(&fakeUploader{}, nil, nil, Options{CaseID: "c1"})
	require.Error(t, err)

	_, err = New(&fakeUploader{}, nil, nil, Options{Dir: t.TempDir()})
	require.Error(t, err)
}

func TestWatchUploadsSettledFile(t *testing.T) {
	dir := t.TempDir()
	uploader := &fakeUploader{}
	w, err := New(uploader, nil, nil, Options{
		Dir:         dir,
		CaseID:      "c1",
		Watch:       true,
		SettleDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.wav"), []byte("audio"), 0644))

	require.Eventually(t, func() bool {
		uploader.mu.Lock()
		defer uploader.mu.Unlock()
		return len(uploader.uploads) == 1
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, []string{"new.wav"}, uploader.uploads)
}
