package board

import "context"

// TaskRepository abstracts task lookup and storage. The aggregator receives
// an explicit repository rather than reaching for process-wide state; the API
// layer owns task lifecycle through the same interface.
type TaskRepository interface {
	// Get loads one task or returns ErrNotFound.
	Get(ctx context.Context, category, taskID string) (Task, error)
	// Put inserts or fully replaces a task.
	Put(ctx context.Context, task Task) error
	// Delete removes a task; deleting an absent task returns ErrNotFound.
	Delete(ctx context.Context, category, taskID string) error
	// List returns all tasks in a category ordered by ID.
	List(ctx context.Context, category string) ([]Task, error)
	// Close releases any underlying resources.
	Close(ctx context.Context) error
}
