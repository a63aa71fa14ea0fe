// Package view models the task detail overlay. The aggregator asks the
// overlay to re-render after a mutation; the overlay only does so for a view
// that is currently open.
package view

import (
	"sync"
	"time"

	"github.com/boardkit/boardpulse/internal/board"
)

// Overlay re-renders a task detail view if it is open; otherwise the call is
// a no-op.
type Overlay interface {
	Refresh(category string, task board.Task)
}

// Render is one captured re-render of an open detail view.
type Render struct {
	Category   string
	Task       board.Task
	RenderedAt time.Time
}

// Tracker is an in-memory Overlay that tracks which task detail views are
// open and captures the latest render for each.
type Tracker struct {
	mu      sync.RWMutex
	open    map[string]struct{}
	renders map[string]Render
}

// NewTracker constructs a Tracker with no open views.
func NewTracker() *Tracker {
	return &Tracker{
		open:    make(map[string]struct{}),
		renders: make(map[string]Render),
	}
}

// Open marks a task's detail view as open.
func (t *Tracker) Open(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open[taskID] = struct{}{}
}

// Close marks a task's detail view as closed and drops its last render.
func (t *Tracker) Close(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, taskID)
	delete(t.renders, taskID)
}

// IsOpen reports whether a task's detail view is open.
func (t *Tracker) IsOpen(taskID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.open[taskID]
	return ok
}

// Refresh re-renders the detail view for the task if it is open.
func (t *Tracker) Refresh(category string, task board.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.open[task.ID]; !ok {
		return
	}
	task.Subtasks = board.CloneSubtasks(task.Subtasks)
	t.renders[task.ID] = Render{
		Category:   category,
		Task:       task,
		RenderedAt: time.Now().UTC(),
	}
}

// LastRender returns the most recent render for an open view.
func (t *Tracker) LastRender(taskID string) (Render, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.renders[taskID]
	return r, ok
}
