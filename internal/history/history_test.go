package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/robottwo/exline/internal/cmdline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *HistoryManager {
	t.Helper()
	manager, err := NewHistoryManager(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = manager.Close()
	})
	return manager
}

func addLines(t *testing.T, manager *HistoryManager, lines ...string) {
	t.Helper()
	for _, line := range lines {
		_, err := manager.Add(line, cmdline.Classify(line, len(line)), "session-1")
		require.NoError(t, err)
	}
}

func lines(entries []HistoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Line)
	}
	return out
}

func TestHistoryManager_Add(t *testing.T) {
	manager := newTestManager(t)

	entry, err := manager.Add("e foo.txt", cmdline.Classify("e foo.txt", 9), "session-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, "e foo.txt", entry.Line)
	assert.Equal(t, "file", entry.Kind)
	assert.Equal(t, "edit", entry.Command)
	assert.Equal(t, "session-1", entry.SessionID)
	assert.False(t, entry.CreatedAt.IsZero())

	entry, err = manager.Add("   ", cmdline.Classify("   ", 3), "session-1")
	require.NoError(t, err)
	assert.Nil(t, entry, "blank lines are not recorded")

	all, err := manager.GetAllEntries()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHistoryManager_GetRecentEntries(t *testing.T) {
	manager := newTestManager(t)
	addLines(t, manager, "e a", "w", "cd /tmp", "help", "set nu")

	recent, err := manager.GetRecentEntries(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"cd /tmp", "help", "set nu"}, lines(recent), "oldest first")

	all, err := manager.GetAllEntries()
	require.NoError(t, err)
	assert.Equal(t, []string{"set nu", "help", "cd /tmp", "w", "e a"}, lines(all), "newest first")
}

func TestHistoryManager_GetRecentEntriesByPrefix(t *testing.T) {
	manager := newTestManager(t)
	addLines(t, manager, "e a", "echo 1", "e b", "w", "e 100%", "e_x")

	entries, err := manager.GetRecentEntriesByPrefix("e ", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"e 100%", "e b", "e a"}, lines(entries))

	entries, err = manager.GetRecentEntriesByPrefix("e ", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"e 100%"}, lines(entries))

	entries, err = manager.GetRecentEntriesByPrefix("e_", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"e_x"}, lines(entries), "_ is matched literally")

	entries, err = manager.GetRecentEntriesByPrefix("e 1%", 10)
	require.NoError(t, err)
	assert.Empty(t, entries, "% is matched literally")
}

func TestHistoryManager_DeleteEntry(t *testing.T) {
	manager := newTestManager(t)
	addLines(t, manager, "e a", "w")

	all, err := manager.GetAllEntries()
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, manager.DeleteEntry(all[0].ID))

	err = manager.DeleteEntry(all[0].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history entry found")

	all, err = manager.GetAllEntries()
	require.NoError(t, err)
	assert.Equal(t, []string{"e a"}, lines(all))
}

func TestHistoryManager_ResetHistory(t *testing.T) {
	manager := newTestManager(t)
	addLines(t, manager, "e a", "w")

	require.NoError(t, manager.ResetHistory())

	all, err := manager.GetAllEntries()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHistoryManager_Trim(t *testing.T) {
	manager := newTestManager(t)
	addLines(t, manager, "1", "2", "3", "4", "5")

	removed, err := manager.Trim(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	all, err := manager.GetAllEntries()
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "4"}, lines(all))

	removed, err = manager.Trim(10)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = manager.Trim(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestHistoryManager_GetEntriesSince(t *testing.T) {
	manager := newTestManager(t)
	addLines(t, manager, "old")

	since := time.Now()
	addLines(t, manager, "new 1", "new 2")

	entries, err := manager.GetEntriesSince(since)
	require.NoError(t, err)
	assert.Equal(t, []string{"new 1", "new 2"}, lines(entries))
}

func TestHistoryManager_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	manager, err := NewHistoryManager(path)
	require.NoError(t, err)
	addLines(t, manager, "e persisted")
	require.NoError(t, manager.Close())

	manager, err = NewHistoryManager(path)
	require.NoError(t, err)
	defer func() {
		_ = manager.Close()
	}()

	all, err := manager.GetAllEntries()
	require.NoError(t, err)
	assert.Equal(t, []string{"e persisted"}, lines(all))
}
