// Package poller drives the periodic refresh loops that keep the state store
// aligned with the backend: a passive file-status loop, a global task loop,
// and a short fixed burst after the user triggers processing.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/vqhuy/casevoice-console/internal/api"
	"github.com/vqhuy/casevoice-console/internal/state"
)

// Backend is the slice of the API client the pollers need.
type Backend interface {
	ListTasks(ctx context.Context, date, caseID string) ([]api.Task, error)
	GetTask(ctx context.Context, taskID string) (*api.Task, error)
}

// Options tunes the loop intervals. Zero values take the defaults; tests
// inject short intervals.
type Options struct {
	FileInterval  time.Duration // passive file-status loop, default 3s
	TaskInterval  time.Duration // global task loop, default 3s
	BurstInterval time.Duration // post-trigger burst tick, default 1s
	BurstTicks    int           // post-trigger burst length, default 10
}

func (o *Options) defaults() {
	if o.FileInterval <= 0 {
		o.FileInterval = 3 * time.Second
	}
	if o.TaskInterval <= 0 {
		o.TaskInterval = 3 * time.Second
	}
	if o.BurstInterval <= 0 {
		o.BurstInterval = time.Second
	}
	if o.BurstTicks <= 0 {
		o.BurstTicks = 10
	}
}

// Poller owns the refresh goroutines. OnUpdate fires after any applied state
// change; the UI uses it to redraw.
type Poller struct {
	backend  Backend
	store    *state.Store
	logger   *log.Logger
	opts     Options
	OnUpdate func()

	mu         sync.RWMutex
	activeCase string
}

// New builds a poller. logger may be nil.
func New(backend Backend, store *state.Store, logger *log.Logger, opts Options) *Poller {
	opts.defaults()
	if logger == nil {
		logger = log.New(log.Writer(), "[poll] ", log.LstdFlags)
	}
	return &Poller{backend: backend, store: store, logger: logger, opts: opts}
}

// SetActiveCase points the passive loops at the case currently on screen.
// An empty id idles them.
func (p *Poller) SetActiveCase(caseID string) {
	p.mu.Lock()
	p.activeCase = caseID
	p.mu.Unlock()
}

func (p *Poller) active() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.activeCase
}

// Run starts both passive loops and blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.loop(ctx, p.opts.FileInterval, p.refreshFiles)
	}()
	go func() {
		defer wg.Done()
		p.loop(ctx, p.opts.TaskInterval, p.refreshTasks)
	}()
	wg.Wait()
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// refreshFiles checks each in-flight file of the active case against its
// task and patches only the status. Files at a terminal status drop out of
// the poll set, so a settled case generates no traffic.
func (p *Poller) refreshFiles(ctx context.Context) {
	caseID := p.active()
	if caseID == "" {
		return
	}
	changed := false
	for _, f := range p.store.Files(caseID) {
		if !api.InFlight(f.Status) {
			continue
		}
		taskID := f.TaskID.String()
		if taskID == "" {
			continue
		}
		task, err := p.backend.GetTask(ctx, taskID)
		if err != nil {
			p.logger.Printf("status check for file %s failed: %v", f.ID.String(), err)
			continue
		}
		if task == nil || task.Status == "" || task.Status == f.Status {
			continue
		}
		p.store.PatchFileStatus(caseID, f.ID.String(), task.Status)
		changed = true
	}
	if changed {
		p.notify()
	}
}

// refreshTasks refetches the unfiltered task list while any known task, in
// any case, is still in flight. Background cases settle too; a fully settled
// store generates no traffic.
func (p *Poller) refreshTasks(ctx context.Context) {
	if !p.store.HasInFlight() {
		return
	}
	seq := p.store.NextSeq()
	tasks, err := p.backend.ListTasks(ctx, "", "")
	if err != nil {
		p.logger.Printf("task refresh failed: %v", err)
		return
	}
	if p.store.SetAllTasks(tasks, seq) {
		p.notify()
	}
}

// fetchTasks runs one guarded task refresh for a case.
func (p *Poller) fetchTasks(ctx context.Context, caseID string) {
	seq := p.store.NextSeq()
	tasks, err := p.backend.ListTasks(ctx, "", caseID)
	if err != nil {
		p.logger.Printf("task refresh for case %s failed: %v", caseID, err)
		return
	}
	if p.store.MergeTasksForCase(caseID, tasks, seq) {
		p.notify()
	}
}

// TriggerBurst refreshes caseID's tasks once per burst tick for the full
// configured burst, regardless of what the interim responses show. Task
// results can keep changing shortly after a status flips to completed, so
// the burst always runs to the end.
func (p *Poller) TriggerBurst(ctx context.Context, caseID string) {
	for i := 0; i < p.opts.BurstTicks; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.opts.BurstInterval):
		}
		p.fetchTasks(ctx, caseID)
	}
}

func (p *Poller) notify() {
	if p.OnUpdate != nil {
		p.OnUpdate()
	}
}
