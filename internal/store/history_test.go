package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/taskbreak/internal/plan"
)

func openStore(t *testing.T) *HistoryStore {
	t.Helper()
	h, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistoryStore_RoundTrip(t *testing.T) {
	h := openStore(t)
	steps := plan.New([]plan.Draft{
		{Title: "Flights", Description: "Book"},
		{Title: "Hotel", Description: "Reserve"},
	})
	steps[0].GeneratedContent = "EVA Air"
	steps[1].GeneratedContent = "Ximending"

	require.NoError(t, h.SaveRun("chat-1", "Plan a 3-day trip to Taipei", steps))
	require.NoError(t, h.SaveRun("chat-1", "Learn Go", steps[:1]))
	require.NoError(t, h.SaveRun("chat-2", "Other chat", steps))

	runs, err := h.RecentRuns("chat-1", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "Learn Go", runs[0].Task)
	assert.Equal(t, "Plan a 3-day trip to Taipei", runs[1].Task)

	run, err := h.GetRun("chat-1", runs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, steps, run.Steps)

	_, err = h.GetRun("chat-2", runs[1].ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestHistoryStore_Clear(t *testing.T) {
	h := openStore(t)
	require.NoError(t, h.SaveRun("chat-1", "task", plan.Steps{{ID: "a", Title: "t"}}))
	require.NoError(t, h.ClearRuns("chat-1"))

	runs, err := h.RecentRuns("chat-1", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	var n int
	require.NoError(t, h.DB.QueryRow(`SELECT COUNT(*) FROM run_steps`).Scan(&n))
	assert.Zero(t, n)
}
