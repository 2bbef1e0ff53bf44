package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vqhuy/casevoice-console/internal/api"
)

func TestStaleWritesDropped(t *testing.T) {
	s := New()
	first := s.NextSeq()
	second := s.NextSeq()

	require.True(t, s.SetCases([]api.Case{{ID: "1", Title: "new"}}, second))
	// The earlier request finishing later must not clobber the fresh data.
	require.False(t, s.SetCases([]api.Case{{ID: "1", Title: "old"}}, first))

	cases := s.Cases()
	require.Len(t, cases, 1)
	assert.Equal(t, "new", cases[0].Title)
}

func TestStaleGuardIsPerTarget(t *testing.T) {
	s := New()
	seqA := s.NextSeq()
	seqB := s.NextSeq()

	require.True(t, s.MergeTasksForCase("c2", nil, seqB))
	// c1 has seen nothing newer, so the older sequence still applies there.
	require.True(t, s.MergeTasksForCase("c1", []api.Task{{ID: "t1"}}, seqA))
}

func TestMergeTasksForCaseKeepsOtherCases(t *testing.T) {
	s := New()
	require.True(t, s.MergeTasksForCase("c1", []api.Task{{ID: "t1", Status: api.StatusCompleted}}, s.NextSeq()))
	require.True(t, s.MergeTasksForCase("c2", []api.Task{{ID: "t2", Status: api.StatusPending}}, s.NextSeq()))

	require.True(t, s.MergeTasksForCase("c1", []api.Task{{ID: "t3", Status: api.StatusPending}}, s.NextSeq()))

	assert.Len(t, s.Tasks("c2"), 1)
	tasks := s.Tasks("c1")
	require.Len(t, tasks, 1)
	assert.Equal(t, api.FlexID("t3"), tasks[0].ID)
	assert.Len(t, s.AllTasks(), 2)
}

func TestSetAllTasksDistributesByCase(t *testing.T) {
	s := New()
	require.True(t, s.MergeTasksForCase("A", []api.Task{{ID: "a1", CaseID: "A", Status: api.StatusCompleted}}, s.NextSeq()))
	require.True(t, s.MergeTasksForCase("B", []api.Task{{ID: "b1", CaseID: "B", Status: api.StatusProcessing}}, s.NextSeq()))

	require.True(t, s.SetAllTasks([]api.Task{
		{ID: "a1", CaseID: "A", Status: api.StatusCompleted},
		{ID: "b1", CaseID: "B", Status: api.StatusCompleted},
		{ID: "c1", CaseID: "C", Status: api.StatusPending},
	}, s.NextSeq()))

	assert.Equal(t, api.StatusCompleted, s.Tasks("B")[0].Status)
	assert.Len(t, s.Tasks("C"), 1)
	assert.Len(t, s.AllTasks(), 3)
}

func TestSetAllTasksClearsVanishedCases(t *testing.T) {
	s := New()
	require.True(t, s.MergeTasksForCase("gone", []api.Task{{ID: "t1", CaseID: "gone", Status: api.StatusPending}}, s.NextSeq()))

	require.True(t, s.SetAllTasks(nil, s.NextSeq()))
	assert.Empty(t, s.Tasks("gone"))
	assert.False(t, s.HasInFlight())
}

func TestSetAllTasksRespectsPerCaseFreshness(t *testing.T) {
	s := New()
	slowGlobal := s.NextSeq()
	fastLocal := s.NextSeq()

	require.True(t, s.MergeTasksForCase("A", []api.Task{{ID: "a1", CaseID: "A", Status: api.StatusCompleted}}, fastLocal))
	// The global listing started earlier, so its stale view of A is dropped
	// while B, which has seen nothing newer, still applies.
	s.SetAllTasks([]api.Task{
		{ID: "a1", CaseID: "A", Status: api.StatusProcessing},
		{ID: "b1", CaseID: "B", Status: api.StatusPending},
	}, slowGlobal)

	assert.Equal(t, api.StatusCompleted, s.Tasks("A")[0].Status)
	assert.Len(t, s.Tasks("B"), 1)
}

func TestTasksSortedNewestFirst(t *testing.T) {
	s := New()
	require.True(t, s.MergeTasksForCase("c1", []api.Task{
		{ID: "old", CreatedAt: "2026-08-01T10:00:00Z"},
		{ID: "new", CreatedAt: "2026-08-30T10:00:00Z"},
		{ID: "mid", CreatedAt: "2026-08-15T10:00:00Z"},
	}, s.NextSeq()))

	tasks := s.Tasks("c1")
	require.Len(t, tasks, 3)
	assert.Equal(t, api.FlexID("new"), tasks[0].ID)
	assert.Equal(t, api.FlexID("mid"), tasks[1].ID)
	assert.Equal(t, api.FlexID("old"), tasks[2].ID)
}

func TestFilterCases(t *testing.T) {
	s := New()
	require.True(t, s.SetCases([]api.Case{
		{ID: "1", CaseCode: "VC-001", Title: "Vehicle Theft"},
		{ID: "2", CaseCode: "VC-002", Title: "Wire Fraud"},
	}, s.NextSeq()))

	assert.Len(t, s.FilterCases(""), 2)
	assert.Len(t, s.FilterCases("fraud"), 1)
	assert.Len(t, s.FilterCases("VC-0"), 2)
	assert.Empty(t, s.FilterCases("narcotics"))
}

func TestHasInFlight(t *testing.T) {
	s := New()
	require.True(t, s.MergeTasksForCase("c1", []api.Task{{ID: "t1", Status: api.StatusCompleted}}, s.NextSeq()))
	assert.False(t, s.HasInFlight())

	require.True(t, s.MergeTasksForCase("c2", []api.Task{{ID: "t2", Status: api.StatusProcessing}}, s.NextSeq()))
	assert.True(t, s.HasInFlight())
}

func TestCasesByActivity(t *testing.T) {
	s := New()
	require.True(t, s.SetCases([]api.Case{
		{ID: "quiet", Title: "No Tasks"},
		{ID: "old", Title: "Old Activity"},
		{ID: "busy", Title: "Recent Activity"},
	}, s.NextSeq()))
	require.True(t, s.MergeTasksForCase("old", []api.Task{
		{ID: "t1", CreatedAt: "2026-08-01T10:00:00Z"},
	}, s.NextSeq()))
	require.True(t, s.MergeTasksForCase("busy", []api.Task{
		{ID: "t2", CreatedAt: "2026-08-20T10:00:00Z"},
		{ID: "t3", CreatedAt: "2026-08-30T10:00:00Z"},
	}, s.NextSeq()))

	ordered := s.CasesByActivity()
	require.Len(t, ordered, 3)
	assert.Equal(t, api.FlexID("busy"), ordered[0].Case.ID)
	assert.Equal(t, api.FlexID("old"), ordered[1].Case.ID)
	assert.Equal(t, api.FlexID("quiet"), ordered[2].Case.ID)
	assert.True(t, ordered[2].LastTask.IsZero())
}

func TestPatchFileStatus(t *testing.T) {
	s := New()
	require.True(t, s.ReplaceFiles("c1", []api.AudioFile{
		{ID: "f1", Filename: "a.wav", Status: "pending"},
	}, s.NextSeq()))

	s.PatchFileStatus("c1", "f1", "completed")
	files := s.Files("c1")
	require.Len(t, files, 1)
	assert.Equal(t, "completed", files[0].Status)
}

func TestPatchTask(t *testing.T) {
	s := New()
	require.True(t, s.MergeTasksForCase("c1", []api.Task{{ID: "t1", Status: api.StatusPending}}, s.NextSeq()))

	assert.True(t, s.PatchTask(api.Task{ID: "t1", Status: api.StatusCompleted}))
	assert.False(t, s.PatchTask(api.Task{ID: "missing"}))
	assert.Equal(t, api.StatusCompleted, s.Tasks("c1")[0].Status)
}

func TestPrependCase(t *testing.T) {
	s := New()
	require.True(t, s.SetCases([]api.Case{{ID: "1"}}, s.NextSeq()))
	s.PrependCase(api.Case{ID: "2"})

	cases := s.Cases()
	require.Len(t, cases, 2)
	assert.Equal(t, api.FlexID("2"), cases[0].ID)
}
