package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicOperations(t *testing.T) {
	historyManager, err := NewHistoryManager(":memory:")
	assert.NoError(t, err, "Failed to create history manager")

	entry, err := historyManager.StartCommand("echo hello", "/", testSessionID)
	require.NoError(t, err)
	assert.False(t, entry.CreatedAt.IsZero(), "Expected CreatedAt to be set")
	assert.False(t, entry.UpdatedAt.IsZero(), "Expected UpdatedAt to be set")
	assert.False(t, entry.ExitCode.Valid)

	entry, err = historyManager.FinishCommand(entry, 2)
	require.NoError(t, err)
	assert.True(t, entry.ExitCode.Valid)
	assert.Equal(t, int32(2), entry.ExitCode.Int32)

	entry, err = historyManager.StartCommand("echo world", "/", testSessionID)
	require.NoError(t, err)
	_, err = historyManager.FinishCommand(entry, 0)
	require.NoError(t, err)

	allEntries, err := historyManager.GetRecentEntries("", 3)
	require.NoError(t, err)
	assert.Len(t, allEntries, 2, "Expected 2 entries")
	assert.Equal(t, "echo hello", allEntries[0].Command, "Expected oldest command first")
	assert.Equal(t, testSessionID, allEntries[0].SessionID)

	targetEntries, _ := historyManager.GetRecentEntries("/", 3)
	assert.Len(t, targetEntries, 2, "Expected 2 entries")

	nonTargetEntries, _ := historyManager.GetRecentEntries("/tmp", 3)
	assert.Len(t, nonTargetEntries, 0, "Expected 0 entries")
}

func TestDeleteEntry(t *testing.T) {
	historyManager, err := NewHistoryManager(":memory:")
	assert.NoError(t, err, "Failed to create history manager")

	entries := addEntries(t, historyManager, testSessionID, "command1", "command2", "command3")
	entry2 := entries[1]

	tests := []struct {
		name          string
		idToDelete    uint
		expectedError bool
		checkAfter    func(t *testing.T, hm *HistoryManager)
	}{
		{
			name:          "Delete existing entry",
			idToDelete:    entry2.ID,
			expectedError: false,
			checkAfter: func(t *testing.T, hm *HistoryManager) {
				entries, err := hm.GetRecentEntries("", 10)
				assert.NoError(t, err)
				assert.Len(t, entries, 2)
				for _, e := range entries {
					assert.NotEqual(t, entry2.ID, e.ID)
				}
			},
		},
		{
			name:          "Delete non-existent entry",
			idToDelete:    99999,
			expectedError: true,
			checkAfter: func(t *testing.T, hm *HistoryManager) {
				entries, err := hm.GetRecentEntries("", 10)
				assert.NoError(t, err)
				assert.Len(t, entries, 2)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := historyManager.DeleteEntry(tt.idToDelete)
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.checkAfter != nil {
				tt.checkAfter(t, historyManager)
			}
		})
	}
}

func TestSessionEntries(t *testing.T) {
	historyManager, err := NewHistoryManager(":memory:")
	require.NoError(t, err)

	addEntries(t, historyManager, "one", "a1", "a2")
	addEntries(t, historyManager, "two", "b1")
	addEntries(t, historyManager, "one", "a3")

	entries, err := historyManager.GetSessionEntries("one", 10)
	require.NoError(t, err)
	commands := make([]string, len(entries))
	for i, entry := range entries {
		commands[i] = entry.Command
	}
	assert.Equal(t, []string{"a1", "a2", "a3"}, commands)

	entries, err = historyManager.GetSessionEntries("one", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a2", entries[0].Command)

	all, err := historyManager.GetAllEntries()
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "a3", all[0].Command, "newest first")
}

func TestRecentCommands(t *testing.T) {
	historyManager, err := NewHistoryManager(":memory:")
	require.NoError(t, err)

	addEntries(t, historyManager, testSessionID, "ls", "cd /tmp", "ls", "make")

	commands, err := historyManager.RecentCommands(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"make", "ls", "cd /tmp"}, commands)

	commands, err = historyManager.RecentCommands(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"make", "ls"}, commands)
}

func TestHistoryPersistsToFile(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "history.db")

	historyManager, err := NewHistoryManager(dbFile)
	require.NoError(t, err)
	addEntries(t, historyManager, testSessionID, "persisted")
	require.NoError(t, historyManager.Close())

	reopened, err := NewHistoryManager(dbFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	entries, err := reopened.GetRecentEntries("", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "persisted", entries[0].Command)
}
