package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/board"
	"github.com/boardkit/boardpulse/internal/board/memory"
	"github.com/boardkit/boardpulse/internal/progress"
	"github.com/boardkit/boardpulse/internal/progress/sinks"
	"github.com/boardkit/boardpulse/internal/view"
)

// captureEmitter records every emitted event so tests can assert exact
// snapshots without running a real hub.
type captureEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (c *captureEmitter) Emit(evt progress.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *captureEmitter) Events() []progress.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]progress.Event, len(c.events))
	copy(out, c.events)
	return out
}

type fixedClock struct{ at time.Time }

func (f fixedClock) Now() time.Time { return f.at }

func seedTask() board.Task {
	return board.Task{
		ID:       "t-1",
		Category: "in-progress",
		Title:    "Ship release",
		Subtasks: []board.Subtask{
			{Title: "write changelog", Completed: true},
			{Title: "tag build", Completed: false},
			{Title: "announce", Completed: false},
		},
	}
}

// TestToggleFlipsAndEmits checks the happy path: the flag flips, the
// repository holds the new state, and exactly one event carries the full
// post-toggle subtask sequence.
func TestToggleFlipsAndEmits(t *testing.T) {
	t.Parallel()

	repo := memory.NewRepository()
	require.NoError(t, repo.Put(context.Background(), seedTask()))

	emitter := &captureEmitter{}
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	agg := New(repo, emitter, nil, fixedClock{at: now}, zap.NewNop())

	prog, err := agg.Toggle(context.Background(), "in-progress", "t-1", 1)
	require.NoError(t, err)
	require.Equal(t, 2, prog.Completed)
	require.Equal(t, 3, prog.Total)
	require.Equal(t, 67, prog.Percent)

	stored, err := repo.Get(context.Background(), "in-progress", "t-1")
	require.NoError(t, err)
	require.True(t, stored.Subtasks[1].Completed)

	events := emitter.Events()
	require.Len(t, events, 1)
	evt := events[0]
	require.Equal(t, progress.KindToggle, evt.Kind)
	require.Equal(t, "t-1", evt.TaskID)
	require.Equal(t, "in-progress", evt.Category)
	require.Equal(t, now, evt.TS)
	require.Equal(t, []board.Subtask{
		{Title: "write changelog", Completed: true},
		{Title: "tag build", Completed: true},
		{Title: "announce", Completed: false},
	}, evt.Subtasks)
}

// TestToggleIsInvolutive toggles the same subtask twice and expects the
// original state back.
func TestToggleIsInvolutive(t *testing.T) {
	t.Parallel()

	repo := memory.NewRepository()
	require.NoError(t, repo.Put(context.Background(), seedTask()))
	agg := New(repo, &captureEmitter{}, nil, nil, zap.NewNop())

	_, err := agg.Toggle(context.Background(), "in-progress", "t-1", 2)
	require.NoError(t, err)
	_, err = agg.Toggle(context.Background(), "in-progress", "t-1", 2)
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), "in-progress", "t-1")
	require.NoError(t, err)
	require.Equal(t, seedTask().Subtasks, stored.Subtasks)
}

// TestToggleOutOfRange verifies a bad index mutates nothing and emits
// nothing.
func TestToggleOutOfRange(t *testing.T) {
	t.Parallel()

	repo := memory.NewRepository()
	require.NoError(t, repo.Put(context.Background(), seedTask()))
	emitter := &captureEmitter{}
	agg := New(repo, emitter, nil, nil, zap.NewNop())

	for _, index := range []int{-1, 3, 99} {
		_, err := agg.Toggle(context.Background(), "in-progress", "t-1", index)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
	}

	stored, err := repo.Get(context.Background(), "in-progress", "t-1")
	require.NoError(t, err)
	require.Equal(t, seedTask().Subtasks, stored.Subtasks)
	require.Empty(t, emitter.Events())
}

// TestToggleUnknownTask maps a missing task to board.ErrNotFound without
// emitting.
func TestToggleUnknownTask(t *testing.T) {
	t.Parallel()

	emitter := &captureEmitter{}
	agg := New(memory.NewRepository(), emitter, nil, nil, zap.NewNop())

	_, err := agg.Toggle(context.Background(), "in-progress", "nope", 0)
	require.True(t, errors.Is(err, board.ErrNotFound))
	require.Empty(t, emitter.Events())
}

// unavailableStore rejects every replacement write and counts attempts.
type unavailableStore struct {
	mu       sync.Mutex
	attempts int
}

func (u *unavailableStore) ReplaceSubtasks(context.Context, string, string, []board.Subtask) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.attempts++
	return errors.New("docstore unavailable")
}

func (u *unavailableStore) Close(context.Context) error { return nil }

func (u *unavailableStore) Attempts() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.attempts
}

// TestToggleSurvivesRemoteStoreOutage runs a toggle through a real hub into a
// remote sink whose store rejects every write. The toggle still succeeds and
// the repository keeps the flipped flag.
func TestToggleSurvivesRemoteStoreOutage(t *testing.T) {
	t.Parallel()

	repo := memory.NewRepository()
	require.NoError(t, repo.Put(context.Background(), seedTask()))

	store := &unavailableStore{}
	hub := progress.NewHub(progress.Config{
		BufferSize:     4,
		MaxBatchEvents: 1,
		MaxBatchWait:   10 * time.Millisecond,
	}, sinks.NewRemoteSink(store, nil))

	agg := New(repo, hub, nil, nil, zap.NewNop())

	prog, err := agg.Toggle(context.Background(), "in-progress", "t-1", 1)
	require.NoError(t, err)
	require.Equal(t, 67, prog.Percent)

	require.NoError(t, hub.Close(context.Background()))
	require.Equal(t, 1, store.Attempts())

	stored, err := repo.Get(context.Background(), "in-progress", "t-1")
	require.NoError(t, err)
	require.True(t, stored.Subtasks[1].Completed)
}

// TestToggleRefreshesOpenOverlay checks the detail view re-renders only
// while it is open.
func TestToggleRefreshesOpenOverlay(t *testing.T) {
	t.Parallel()

	repo := memory.NewRepository()
	require.NoError(t, repo.Put(context.Background(), seedTask()))
	tracker := view.NewTracker()
	agg := New(repo, &captureEmitter{}, tracker, nil, zap.NewNop())

	_, err := agg.Toggle(context.Background(), "in-progress", "t-1", 0)
	require.NoError(t, err)
	_, ok := tracker.LastRender("t-1")
	require.False(t, ok, "closed overlay must not render")

	tracker.Open("t-1")
	_, err = agg.Toggle(context.Background(), "in-progress", "t-1", 1)
	require.NoError(t, err)

	render, ok := tracker.LastRender("t-1")
	require.True(t, ok)
	require.True(t, render.Task.Subtasks[1].Completed)
}

// TestPublishEmitsSnapshot checks Publish reports progress without touching
// the repository.
func TestPublishEmitsSnapshot(t *testing.T) {
	t.Parallel()

	emitter := &captureEmitter{}
	agg := New(memory.NewRepository(), emitter, nil, nil, zap.NewNop())

	prog := agg.Publish(context.Background(), seedTask())
	require.Equal(t, 33, prog.Percent)

	events := emitter.Events()
	require.Len(t, events, 1)
	require.Equal(t, progress.KindSnapshot, events[0].Kind)
}

// TestForgetEmitsRemoval checks removals reach the hub with the removal
// kind.
func TestForgetEmitsRemoval(t *testing.T) {
	t.Parallel()

	emitter := &captureEmitter{}
	agg := New(memory.NewRepository(), emitter, nil, nil, zap.NewNop())

	agg.Forget(context.Background(), seedTask())

	events := emitter.Events()
	require.Len(t, events, 1)
	require.Equal(t, progress.KindRemoved, events[0].Kind)
}
