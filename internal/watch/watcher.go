// Package watch uploads audio files dropped into a local directory to a
// case, so field recordings can be ingested by copying them into a folder
// instead of driving the UI.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vqhuy/casevoice-console/internal/api"
	"github.com/vqhuy/casevoice-console/internal/bus"
	"github.com/vqhuy/casevoice-console/internal/store"

	"github.com/fsnotify/fsnotify"
)

// Uploader is the slice of the API client the watcher needs.
type Uploader interface {
	UploadAudio(ctx context.Context, caseID, path string) (*api.UploadResponse, error)
	ProcessTask(ctx context.Context, taskID, modelName string) (*api.Task, error)
}

// Options controls watch behavior.
type Options struct {
	Dir       string
	CaseID    string
	Patterns  []string // e.g. []string{"*.wav", "*.mp3"}
	ModelName string   // when set, processing starts right after upload
	Watch     bool     // false runs one pass over existing files and exits
	Logger    *log.Logger
	// settleDelay is how long a file must stay unchanged before upload, so a
	// recording still being copied in is not sent half-written.
	SettleDelay time.Duration
}

// DefaultPatterns covers the audio formats the backend accepts.
var DefaultPatterns = []string{"*.wav", "*.mp3", "*.m4a", "*.ogg", "*.flac"}

// Watcher uploads matching files from a directory to one case.
type Watcher struct {
	uploader Uploader
	bus      bus.Bus
	store    *store.Store
	opts     Options

	mu      sync.Mutex
	pending map[string]pendingFile
	done    map[string]bool

	uploaded int
	errors   int
}

type pendingFile struct {
	size int64
	seen time.Time
}

// New constructs a watcher. bus and st may be nil-valued fallbacks; the
// watcher still works with only an uploader.
func New(uploader Uploader, b bus.Bus, st *store.Store, opts Options) (*Watcher, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("watch: directory required")
	}
	if opts.CaseID == "" {
		return nil, fmt.Errorf("watch: case id required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[watch] ", log.LstdFlags)
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = DefaultPatterns
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}
	return &Watcher{
		uploader: uploader,
		bus:      b,
		store:    st,
		opts:     opts,
		pending:  make(map[string]pendingFile),
		done:     make(map[string]bool),
	}, nil
}

// Run uploads existing files, then (in watch mode) keeps uploading new ones
// until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.scanOnce(ctx); err != nil {
		return err
	}

	if !w.opts.Watch {
		w.flush(ctx, time.Now().Add(w.opts.SettleDelay))
		w.opts.Logger.Printf("Completed one-shot upload: uploaded=%d errors=%d", w.uploaded, w.errors)
		return nil
	}

	return w.watchLoop(ctx)
}

func (w *Watcher) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range w.opts.Patterns {
		p := strings.TrimSpace(strings.ToLower(pat))
		if ok, _ := filepath.Match(p, lower); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) scanOnce(ctx context.Context) error {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !w.matches(e.Name()) {
			continue
		}
		w.mark(filepath.Join(w.opts.Dir, e.Name()))
	}
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("watch add: %w", err)
	}

	w.opts.Logger.Printf("Watching directory: %s (patterns: %s)", w.opts.Dir, strings.Join(w.opts.Patterns, ","))
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.opts.Logger.Printf("Watch stopping: uploaded=%d errors=%d", w.uploaded, w.errors)
			return ctx.Err()
		case ev := <-fw.Events:
			if !w.matches(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.mark(ev.Name)
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.mu.Lock()
				delete(w.pending, ev.Name)
				w.mu.Unlock()
			}
		case err := <-fw.Errors:
			if err != nil {
				w.opts.Logger.Printf("watch error: %v", err)
			}
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

// mark records a candidate file with its current size. A later flush uploads
// it once the size stops moving for SettleDelay.
func (w *Watcher) mark(path string) {
	st, err := os.Stat(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done[path] {
		return
	}
	prev, ok := w.pending[path]
	if ok && prev.size == st.Size() {
		return
	}
	w.pending[path] = pendingFile{size: st.Size(), seen: time.Now()}
}

// flush uploads every pending file that has settled.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	w.mu.Lock()
	ready := []string{}
	for path, pf := range w.pending {
		if now.Sub(pf.seen) >= w.opts.SettleDelay || !w.opts.Watch {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	for _, path := range ready {
		if err := w.upload(ctx, path); err != nil {
			w.opts.Logger.Printf("upload %s failed: %v", path, err)
			w.errors++
			continue
		}
		w.mu.Lock()
		w.done[path] = true
		w.mu.Unlock()
		w.uploaded++
	}
}

func (w *Watcher) upload(ctx context.Context, path string) error {
	resp, err := w.uploader.UploadAudio(ctx, w.opts.CaseID, path)
	if err != nil {
		return err
	}
	w.opts.Logger.Printf("Uploaded %s as task %s", filepath.Base(path), resp.TaskID)

	if w.store != nil {
		_ = w.store.LogAction(ctx, w.opts.CaseID, store.ActionWatchIngest, "watch", map[string]interface{}{
			"filename": filepath.Base(path),
			"task_id":  resp.TaskID.String(),
		})
	}
	if w.bus != nil {
		_ = w.bus.PublishTaskUpdate(ctx, bus.TaskUpdateMessage{
			TaskID: resp.TaskID.String(),
			CaseID: w.opts.CaseID,
			Status: resp.Status,
		})
	}

	if w.opts.ModelName != "" && resp.TaskID != "" {
		if _, err := w.uploader.ProcessTask(ctx, resp.TaskID.String(), w.opts.ModelName); err != nil {
			return fmt.Errorf("process task %s: %w", resp.TaskID, err)
		}
	}
	return nil
}

// Stats returns how many files were uploaded and how many failed.
func (w *Watcher) Stats() (uploaded, errors int) {
	return w.uploaded, w.errors
}
