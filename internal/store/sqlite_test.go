package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	var count int
	err = store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&count)
	require.NoError(t, err)
	assert.Greater(t, count, 0, "Expected tables to be created")
}

func TestSaveAndListSummaries(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	id, err := store.SaveSummary(ctx, SavedSummary{
		CaseID:    "c1",
		Title:     "Joint summary",
		Content:   "Three calls arranging the pickup.",
		ModelName: "gemma2:9b",
		TaskIDs:   []string{"t1", "t2", "t3"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = store.SaveSummary(ctx, SavedSummary{CaseID: "other", Title: "x", Content: "y"})
	require.NoError(t, err)

	summaries, err := store.ListSummaries(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, id, summaries[0].ID)
	assert.Equal(t, "Joint summary", summaries[0].Title)
	assert.Equal(t, []string{"t1", "t2", "t3"}, summaries[0].TaskIDs)
	assert.False(t, summaries[0].CreatedAt.IsZero())
}

func TestDeleteSummary(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	id, err := store.SaveSummary(ctx, SavedSummary{CaseID: "c1", Title: "t", Content: "c"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteSummary(ctx, id))

	summaries, err := store.ListSummaries(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestActivityLog(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.LogAction(ctx, "c1", ActionUpload, "console", map[string]interface{}{
		"filename": "call.wav",
	}))
	require.NoError(t, store.LogAction(ctx, "c1", ActionProcess, "console", nil))
	require.NoError(t, store.LogAction(ctx, "c2", ActionCreateCase, "console", nil))

	entries, err := store.GetActivity(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	all, err := store.GetActivity(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := store.GetActivity(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestActivityDetailsRoundTrip(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.LogAction(ctx, "c1", ActionSummarize, "console", map[string]interface{}{
		"task_count": 2,
		"model":      "gemma2:9b",
	}))

	entries, err := store.GetActivity(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "gemma2:9b", entries[0].Details["model"])
	assert.EqualValues(t, 2, entries[0].Details["task_count"])
}
