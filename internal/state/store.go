// Package state holds the client-side view of cases, files and tasks behind
// one mutex so the pollers, the event bus and the UI all mutate it through
// the same guarded entry points.
package state

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vqhuy/casevoice-console/internal/api"
)

// Store is the in-memory session state. All methods are safe for concurrent
// use. Write methods that originate from polls carry a sequence number; a
// write whose sequence is older than the newest applied one for the same
// target is dropped, so a slow response can never overwrite a fresher one.
type Store struct {
	mu sync.RWMutex

	cases []api.Case
	// files and tasks are keyed by case id.
	files map[string][]api.AudioFile
	tasks map[string][]api.Task

	// lastSeq tracks the newest applied sequence per write target.
	lastSeq map[string]uint64
	nextSeq uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		files:   make(map[string][]api.AudioFile),
		tasks:   make(map[string][]api.Task),
		lastSeq: make(map[string]uint64),
	}
}

// NextSeq hands out a sequence number. Callers take one before issuing a
// request and pass it back with the result.
func (s *Store) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// fresh records seq for target and reports whether the write may proceed.
// Caller must hold the write lock.
func (s *Store) fresh(target string, seq uint64) bool {
	if seq < s.lastSeq[target] {
		return false
	}
	s.lastSeq[target] = seq
	return true
}

// SetCases replaces the case list.
func (s *Store) SetCases(cases []api.Case, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh("cases", seq) {
		return false
	}
	s.cases = append([]api.Case(nil), cases...)
	return true
}

// PrependCase puts a newly created case at the top of the list.
func (s *Store) PrependCase(c api.Case) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = append([]api.Case{c}, s.cases...)
}

// ReplaceFiles swaps the file list of one case.
func (s *Store) ReplaceFiles(caseID string, files []api.AudioFile, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh("files:"+caseID, seq) {
		return false
	}
	s.files[caseID] = append([]api.AudioFile(nil), files...)
	return true
}

// PatchFileStatus updates one file's status in place. The passive file poll
// checks in-flight files one task at a time and lands the result here, so no
// full list refresh happens per tick.
func (s *Store) PatchFileStatus(caseID, fileID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := s.files[caseID]
	for i := range files {
		if files[i].ID.String() == fileID {
			files[i].Status = status
			return
		}
	}
}

// MergeTasksForCase removes the prior entries for caseID and appends the new
// ones, so a per-case refresh never disturbs other cases' tasks.
func (s *Store) MergeTasksForCase(caseID string, tasks []api.Task, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh("tasks:"+caseID, seq) {
		return false
	}
	s.tasks[caseID] = append([]api.Task(nil), tasks...)
	return true
}

// SetAllTasks applies an unfiltered task listing. Tasks are grouped by case
// and every case's list is replaced, including cases whose tasks have all
// disappeared from the backend. Freshness is still checked per case, so a
// newer per-case refresh is never overwritten by a slower global one.
func (s *Store) SetAllTasks(tasks []api.Task, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCase := make(map[string][]api.Task)
	for _, t := range tasks {
		id := t.CaseID.String()
		byCase[id] = append(byCase[id], t)
	}
	for caseID := range s.tasks {
		if _, ok := byCase[caseID]; !ok {
			byCase[caseID] = nil
		}
	}
	applied := false
	for caseID, list := range byCase {
		if !s.fresh("tasks:"+caseID, seq) {
			continue
		}
		s.tasks[caseID] = append([]api.Task(nil), list...)
		applied = true
	}
	return applied
}

// PatchTask replaces one task wherever it lives. Returns false when the task
// is unknown.
func (s *Store) PatchTask(t api.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for caseID, tasks := range s.tasks {
		for i := range tasks {
			if tasks[i].ID == t.ID {
				s.tasks[caseID][i] = t
				return true
			}
		}
	}
	return false
}

// Cases returns a copy of the case list.
func (s *Store) Cases() []api.Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Case(nil), s.cases...)
}

// FilterCases returns the cases whose code or title contains query,
// case-insensitively. An empty query returns everything.
func (s *Store) FilterCases(query string) []api.Case {
	q := strings.ToLower(strings.TrimSpace(query))
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q == "" {
		return append([]api.Case(nil), s.cases...)
	}
	out := []api.Case{}
	for _, c := range s.cases {
		if strings.Contains(strings.ToLower(c.CaseCode), q) ||
			strings.Contains(strings.ToLower(c.Title), q) {
			out = append(out, c)
		}
	}
	return out
}

// Files returns a copy of one case's files.
func (s *Store) Files(caseID string) []api.AudioFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.AudioFile(nil), s.files[caseID]...)
}

// Tasks returns a copy of one case's tasks ordered newest first by creation
// time. Ties and unparseable timestamps keep the backend's order.
func (s *Store) Tasks(caseID string) []api.Task {
	s.mu.RLock()
	out := append([]api.Task(nil), s.tasks[caseID]...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return parseWhen(out[i].CreatedAt).After(parseWhen(out[j].CreatedAt))
	})
	return out
}

// AllTasks returns every known task across cases.
func (s *Store) AllTasks() []api.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []api.Task{}
	for _, tasks := range s.tasks {
		out = append(out, tasks...)
	}
	return out
}

// HasInFlight reports whether any known task is still pending or processing.
func (s *Store) HasInFlight() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tasks := range s.tasks {
		for i := range tasks {
			if api.InFlight(tasks[i].Status) {
				return true
			}
		}
	}
	return false
}

// CaseActivity pairs a case with its newest task timestamp for ordering.
type CaseActivity struct {
	Case     api.Case
	LastTask time.Time
}

// CasesByActivity orders cases by their newest task, most recent first.
// Cases without tasks sort with a zero timestamp, so they land at the end.
// The sort is stable: ties keep the backend's order.
func (s *Store) CasesByActivity() []CaseActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CaseActivity, 0, len(s.cases))
	for _, c := range s.cases {
		newest := time.Time{}
		for _, t := range s.tasks[c.ID.String()] {
			if ts := taskTime(t); ts.After(newest) {
				newest = ts
			}
		}
		out = append(out, CaseActivity{Case: c, LastTask: newest})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastTask.After(out[j].LastTask)
	})
	return out
}

// taskTime parses a task's most recent timestamp. Unparseable or absent
// timestamps collapse to the zero time.
func taskTime(t api.Task) time.Time {
	for _, raw := range []string{t.UpdatedAt, t.CreatedAt} {
		if ts := parseWhen(raw); !ts.IsZero() {
			return ts
		}
	}
	return time.Time{}
}

// parseWhen parses the timestamp formats the backend is known to emit.
func parseWhen(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
