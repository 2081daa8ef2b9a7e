package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNoteRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.AddNote(ctx, "buy oat milk")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	notes, err := s.Notes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "buy oat milk", notes[0].Content)
}

func TestNotesMostRecentFirstWithLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := s.AddNote(ctx, fmt.Sprintf("note %d", i))
		require.NoError(t, err)
	}

	notes, err := s.Notes(ctx, 3)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	require.Equal(t, "note 5", notes[0].Content)
	require.Equal(t, "note 4", notes[1].Content)
	require.Equal(t, "note 3", notes[2].Content)
}

func TestDueTasksAndTriggeredFlag(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	pastID, err := s.AddReminder(ctx, "water the plants", now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = s.AddReminder(ctx, "future thing", now.Add(time.Hour))
	require.NoError(t, err)

	due, err := s.DueTasks(ctx, KindReminder, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, pastID, due[0].ID)
	require.Equal(t, "water the plants", due[0].Text)
	require.False(t, due[0].Triggered)

	require.NoError(t, s.MarkTriggered(ctx, pastID, KindReminder))

	// Re-polling any number of times surfaces the task zero more times.
	for i := 0; i < 3; i++ {
		due, err = s.DueTasks(ctx, KindReminder, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.Empty(t, due)
	}
}

func TestAlarmDefaultLabelAndKindNamespaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := s.AddAlarm(ctx, "", now.Add(-time.Second))
	require.NoError(t, err)

	alarms, err := s.DueTasks(ctx, KindAlarm, now)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	require.Equal(t, "Alarm", alarms[0].Text)

	// The reminder namespace stays empty.
	reminders, err := s.DueTasks(ctx, KindReminder, now)
	require.NoError(t, err)
	require.Empty(t, reminders)
}

func TestUnknownKindRejected(t *testing.T) {
	s := openTestStore(t)
	_, err := s.DueTasks(context.Background(), Kind("notes; DROP TABLE notes"), time.Now())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown task kind")

	err = s.MarkTriggered(context.Background(), "x", Kind("bogus"))
	require.Error(t, err)
}

func TestDefaultPathUsesXDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	path, err := DefaultPath()
	require.NoError(t, err)
	require.Equal(t, "/custom/data/hark/memory.db", path)
}
