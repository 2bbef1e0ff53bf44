package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vqhuy/casevoice-console/internal/api"
	"github.com/vqhuy/casevoice-console/internal/state"
)

type fakeBackend struct {
	mu          sync.Mutex
	taskCalls   int
	taskFilters []string
	getCalls    map[string]int
	tasks       []api.Task
	statuses    map[string]string
}

func (f *fakeBackend) ListTasks(ctx context.Context, date, caseID string) ([]api.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskCalls++
	f.taskFilters = append(f.taskFilters, caseID)
	return append([]api.Task(nil), f.tasks...), nil
}

func (f *fakeBackend) GetTask(ctx context.Context, taskID string) (*api.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getCalls == nil {
		f.getCalls = make(map[string]int)
	}
	f.getCalls[taskID]++
	return &api.Task{ID: api.FlexID(taskID), Status: f.statuses[taskID]}, nil
}

func (f *fakeBackend) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gets := 0
	for _, n := range f.getCalls {
		gets += n
	}
	return f.taskCalls, gets
}

func (f *fakeBackend) getCount(taskID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls[taskID]
}

func (f *fakeBackend) filters() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.taskFilters...)
}

func (f *fakeBackend) setTasks(tasks []api.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = tasks
}

func (f *fakeBackend) setStatus(taskID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = make(map[string]string)
	}
	f.statuses[taskID] = status
}

func shortOpts() Options {
	return Options{
		FileInterval:  5 * time.Millisecond,
		TaskInterval:  5 * time.Millisecond,
		BurstInterval: time.Millisecond,
		BurstTicks:    10,
	}
}

func TestTriggerBurstRunsAllTicks(t *testing.T) {
	backend := &fakeBackend{tasks: []api.Task{{ID: "t1", Status: api.StatusCompleted}}}
	store := state.New()
	p := New(backend, store, nil, shortOpts())

	// Results can still settle after completion, so the burst must not stop
	// early even though every response is already terminal.
	p.TriggerBurst(context.Background(), "c1")

	taskCalls, _ := backend.calls()
	assert.Equal(t, 10, taskCalls)
}

func TestTriggerBurstStopsOnCancel(t *testing.T) {
	backend := &fakeBackend{}
	p := New(backend, state.New(), nil, shortOpts())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.TriggerBurst(ctx, "c1")

	taskCalls, _ := backend.calls()
	assert.Zero(t, taskCalls)
}

func TestTaskLoopIdlesWhenSettled(t *testing.T) {
	backend := &fakeBackend{}
	store := state.New()
	require.True(t, store.MergeTasksForCase("c1", []api.Task{{ID: "t1", Status: api.StatusCompleted}}, store.NextSeq()))

	p := New(backend, store, nil, shortOpts())
	p.SetActiveCase("c1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	taskCalls, _ := backend.calls()
	assert.Zero(t, taskCalls, "no in-flight task, no task polling")
}

func TestTaskLoopPollsUnfiltered(t *testing.T) {
	backend := &fakeBackend{tasks: []api.Task{{ID: "t1", CaseID: "c1", Status: api.StatusProcessing}}}
	store := state.New()
	require.True(t, store.MergeTasksForCase("c1", []api.Task{{ID: "t1", Status: api.StatusProcessing}}, store.NextSeq()))

	var updates atomic.Int32
	p := New(backend, store, nil, shortOpts())
	p.OnUpdate = func() { updates.Add(1) }
	p.SetActiveCase("c1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	taskCalls, _ := backend.calls()
	assert.Greater(t, taskCalls, 1)
	assert.Greater(t, updates.Load(), int32(0))
	for _, filter := range backend.filters() {
		assert.Empty(t, filter, "task loop must list without a case filter")
	}
}

func TestTaskLoopReachesBackgroundCases(t *testing.T) {
	// Case A is on screen and settled; case B is still transcribing in the
	// background. The loop must keep polling and land B's completion.
	backend := &fakeBackend{tasks: []api.Task{
		{ID: "a1", CaseID: "A", Status: api.StatusCompleted},
		{ID: "b1", CaseID: "B", Status: api.StatusCompleted, Result: &api.TaskResult{Summary: "done"}},
	}}
	store := state.New()
	require.True(t, store.MergeTasksForCase("A", []api.Task{{ID: "a1", CaseID: "A", Status: api.StatusCompleted}}, store.NextSeq()))
	require.True(t, store.MergeTasksForCase("B", []api.Task{{ID: "b1", CaseID: "B", Status: api.StatusProcessing}}, store.NextSeq()))

	p := New(backend, store, nil, shortOpts())
	p.SetActiveCase("A")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	tasks := store.Tasks("B")
	require.Len(t, tasks, 1)
	assert.Equal(t, api.StatusCompleted, tasks[0].Status)
}

func TestFileLoopChecksOnlyInFlightFiles(t *testing.T) {
	backend := &fakeBackend{}
	backend.setStatus("t2", api.StatusCompleted)
	store := state.New()
	require.True(t, store.ReplaceFiles("c1", []api.AudioFile{
		{ID: "f1", Filename: "done.wav", Status: api.StatusCompleted, TaskID: "t1"},
		{ID: "f2", Filename: "busy.wav", Status: api.StatusProcessing, TaskID: "t2"},
	}, store.NextSeq()))

	p := New(backend, store, nil, shortOpts())
	p.SetActiveCase("c1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	assert.Zero(t, backend.getCount("t1"), "terminal file must not be re-checked")
	assert.Greater(t, backend.getCount("t2"), 0)
}

func TestFileLoopStopsAfterTerminalStatus(t *testing.T) {
	backend := &fakeBackend{}
	backend.setStatus("t1", api.StatusCompleted)
	store := state.New()
	require.True(t, store.ReplaceFiles("c1", []api.AudioFile{
		{ID: "f1", Filename: "call.wav", Status: api.StatusProcessing, TaskID: "t1"},
	}, store.NextSeq()))

	var updates atomic.Int32
	p := New(backend, store, nil, shortOpts())
	p.OnUpdate = func() { updates.Add(1) }
	p.SetActiveCase("c1")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	files := store.Files("c1")
	require.Len(t, files, 1)
	assert.Equal(t, api.StatusCompleted, files[0].Status)
	// The first check patches the file to completed; after that it is out of
	// the poll set, so the backend sees exactly one status fetch.
	assert.Equal(t, 1, backend.getCount("t1"))
	assert.Equal(t, int32(1), updates.Load())
}

func TestLoopsIdleWithoutActiveCase(t *testing.T) {
	backend := &fakeBackend{}
	p := New(backend, state.New(), nil, shortOpts())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	taskCalls, statusCalls := backend.calls()
	assert.Zero(t, taskCalls)
	assert.Zero(t, statusCalls)
}

func TestBurstPicksUpLateResults(t *testing.T) {
	backend := &fakeBackend{tasks: []api.Task{{ID: "t1", Status: api.StatusProcessing}}}
	store := state.New()
	p := New(backend, store, nil, shortOpts())

	done := make(chan struct{})
	go func() {
		p.TriggerBurst(context.Background(), "c1")
		close(done)
	}()
	// Flip the backend state mid-burst; later ticks must observe it.
	time.Sleep(4 * time.Millisecond)
	backend.setTasks([]api.Task{{ID: "t1", Status: api.StatusCompleted, Result: &api.TaskResult{Summary: "done"}}})
	<-done

	tasks := store.Tasks("c1")
	require.Len(t, tasks, 1)
	assert.Equal(t, api.StatusCompleted, tasks[0].Status)
	require.NotNil(t, tasks[0].Result)
	assert.Equal(t, "done", tasks[0].Result.Summary)
}
