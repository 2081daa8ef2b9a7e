package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hark/internal/store"
)

type fakeTaskStore struct {
	mu        sync.Mutex
	due       map[store.Kind][]store.Task
	dueErr    error
	markErr   error
	triggered []string
}

func (f *fakeTaskStore) DueTasks(_ context.Context, kind store.Kind, _ time.Time) ([]store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	return f.due[kind], nil
}

func (f *fakeTaskStore) MarkTriggered(_ context.Context, id string, kind store.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.triggered = append(f.triggered, string(kind)+":"+id)

	remaining := f.due[kind][:0]
	for _, task := range f.due[kind] {
		if task.ID != id {
			remaining = append(remaining, task)
		}
	}
	f.due[kind] = remaining
	return nil
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	titles   []string
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, message)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCheckAnnouncesAndMarksDueTasks(t *testing.T) {
	st := &fakeTaskStore{due: map[store.Kind][]store.Task{
		store.KindReminder: {{ID: "r1", Text: "water the plants"}},
		store.KindAlarm:    {{ID: "a1", Text: "Alarm"}},
	}}
	sp := &fakeSpeaker{}
	nt := &fakeNotifier{}

	p := New(st, sp, nt, time.Minute, testLogger())
	p.checkAll(context.Background())

	require.Equal(t, []string{"reminders:r1", "alarms:a1"}, st.triggered)
	require.Equal(t, []string{
		"Here is your reminder: water the plants",
		"Alarm! It's time for your alarm.",
	}, sp.spoken)
	require.Equal(t, []string{"Hark Reminder", "Hark Alarm"}, nt.titles)
}

func TestCheckSkipsAnnouncementWhenMarkFails(t *testing.T) {
	st := &fakeTaskStore{
		due:     map[store.Kind][]store.Task{store.KindReminder: {{ID: "r1", Text: "stretch"}}},
		markErr: errors.New("db locked"),
	}
	sp := &fakeSpeaker{}
	nt := &fakeNotifier{}

	p := New(st, sp, nt, time.Minute, testLogger())
	p.checkAll(context.Background())

	require.Empty(t, sp.spoken)
	require.Empty(t, nt.messages)
}

func TestCheckToleratesStoreError(t *testing.T) {
	st := &fakeTaskStore{dueErr: errors.New("no such table")}
	sp := &fakeSpeaker{}
	nt := &fakeNotifier{}

	p := New(st, sp, nt, time.Minute, testLogger())
	p.checkAll(context.Background())

	require.Empty(t, sp.spoken)
}

func TestCheckContinuesWhenSpeakFails(t *testing.T) {
	st := &fakeTaskStore{due: map[store.Kind][]store.Task{
		store.KindReminder: {{ID: "r1", Text: "a"}, {ID: "r2", Text: "b"}},
	}}
	sp := &fakeSpeaker{err: errors.New("no sink")}
	nt := &fakeNotifier{}

	p := New(st, sp, nt, time.Minute, testLogger())
	p.checkAll(context.Background())

	require.Len(t, sp.spoken, 2)
	require.Len(t, st.triggered, 2)
}

func TestRunChecksImmediatelyAndStopsOnCancel(t *testing.T) {
	st := &fakeTaskStore{due: map[store.Kind][]store.Task{
		store.KindReminder: {{ID: "r1", Text: "now"}},
	}}
	sp := &fakeSpeaker{}
	nt := &fakeNotifier{}

	p := New(st, sp, nt, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		sp.mu.Lock()
		defer sp.mu.Unlock()
		return len(sp.spoken) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
