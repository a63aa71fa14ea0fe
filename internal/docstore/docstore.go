// Package docstore defines the interface for the remote document store that
// holds the authoritative subtask data. The store is opaque: documents are
// addressed by category, task identifier, and a fixed sub-resource name, and
// writes always replace the whole subtask sequence.
package docstore

import (
	"context"

	"github.com/boardkit/boardpulse/internal/board"
)

// Store accepts full replacement writes of a task's subtask sequence.
type Store interface {
	// ReplaceSubtasks overwrites the remote subtask document for the task.
	// The write is last-write-wins on the full array, not per-field.
	ReplaceSubtasks(ctx context.Context, category, taskID string, subtasks []board.Subtask) error
	// Close releases any underlying resources.
	Close(ctx context.Context) error
}

// NoOpStore discards writes. It is useful for development or running the
// service without a remote store.
type NoOpStore struct{}

// ReplaceSubtasks for NoOpStore does nothing and always returns nil.
func (NoOpStore) ReplaceSubtasks(context.Context, string, string, []board.Subtask) error {
	return nil
}

// Close for NoOpStore does nothing and always returns nil.
func (NoOpStore) Close(context.Context) error {
	return nil
}
