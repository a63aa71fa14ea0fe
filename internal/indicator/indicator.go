// Package indicator defines the visual progress indicator contract and a
// registry that resolves handles by task ID. The aggregator talks to handles
// instead of any concrete rendering technology.
package indicator

import (
	"sync"
)

// Handle is one task's progress indicator. When a task has no subtasks the
// indicator is removed entirely rather than rendered at 0%.
type Handle interface {
	// SetFill sets the proportional fill in [0, 100].
	SetFill(percent int)
	// SetLabel sets the textual "completed/total" label.
	SetLabel(text string)
	// Remove takes the indicator out of the rendered view.
	Remove()
}

// Registry resolves indicator handles by task ID. It is safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Register associates a handle with a task ID, replacing any previous handle.
func (r *Registry) Register(taskID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[taskID] = h
}

// Deregister removes the handle for a task ID.
func (r *Registry) Deregister(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, taskID)
}

// Lookup returns the handle for a task ID, or false when none is registered.
func (r *Registry) Lookup(taskID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[taskID]
	return h, ok
}

// State is the last rendered state captured by a MemoryHandle.
type State struct {
	Percent int    `json:"percent"`
	Label   string `json:"label"`
	Removed bool   `json:"removed"`
	Shown   bool   `json:"shown"`
}

// MemoryHandle records the most recent indicator state. It backs the API's
// progress view and tests.
type MemoryHandle struct {
	mu    sync.Mutex
	state State
}

// NewMemoryHandle constructs a MemoryHandle.
func NewMemoryHandle() *MemoryHandle {
	return &MemoryHandle{}
}

// SetFill records the fill percentage and marks the indicator shown.
func (h *MemoryHandle) SetFill(percent int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Percent = percent
	h.state.Shown = true
	h.state.Removed = false
}

// SetLabel records the label text and marks the indicator shown.
func (h *MemoryHandle) SetLabel(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Label = text
	h.state.Shown = true
	h.state.Removed = false
}

// Remove marks the indicator as removed from the view.
func (h *MemoryHandle) Remove() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = State{Removed: true}
}

// State returns a copy of the last rendered state.
func (h *MemoryHandle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}
