// Package memory provides an in-memory task repository for development and
// tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/boardkit/boardpulse/internal/board"
)

// Repository stores tasks in a mutex-guarded map keyed by (category, id).
type Repository struct {
	mu    sync.RWMutex
	tasks map[taskKey]board.Task
}

type taskKey struct {
	category string
	id       string
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{tasks: make(map[taskKey]board.Task)}
}

// Get loads one task or returns board.ErrNotFound.
func (r *Repository) Get(_ context.Context, category, taskID string) (board.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskKey{category: category, id: taskID}]
	if !ok {
		return board.Task{}, board.ErrNotFound
	}
	task.Subtasks = board.CloneSubtasks(task.Subtasks)
	return task, nil
}

// Put inserts or fully replaces a task.
func (r *Repository) Put(_ context.Context, task board.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.Subtasks = board.CloneSubtasks(task.Subtasks)
	r.tasks[taskKey{category: task.Category, id: task.ID}] = task
	return nil
}

// Delete removes a task; deleting an absent task returns board.ErrNotFound.
func (r *Repository) Delete(_ context.Context, category, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := taskKey{category: category, id: taskID}
	if _, ok := r.tasks[key]; !ok {
		return board.ErrNotFound
	}
	delete(r.tasks, key)
	return nil
}

// List returns all tasks in a category ordered by ID.
func (r *Repository) List(_ context.Context, category string) ([]board.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []board.Task
	for key, task := range r.tasks {
		if key.category != category {
			continue
		}
		task.Subtasks = board.CloneSubtasks(task.Subtasks)
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close implements board.TaskRepository; it performs no action.
func (r *Repository) Close(context.Context) error {
	return nil
}
