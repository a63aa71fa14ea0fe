// Package board defines the task board domain types and the completion
// percentage computation shared by the aggregator, the API, and the sinks.
package board

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFound signals that the requested task does not exist.
var ErrNotFound = errors.New("task not found")

// Subtask is a boolean-completable unit belonging to a task. Fields beyond
// Completed are carried opaquely through remote replacements.
type Subtask struct {
	Title     string `json:"title" bson:"title"`
	Completed bool   `json:"completed" bson:"completed"`
}

// Task owns a category label, an identifier, and an ordered subtask sequence.
// Subtasks are index-addressed: the index is a subtask's identity within its
// parent for update purposes.
type Task struct {
	ID       string    `json:"id" bson:"_id"`
	Category string    `json:"category" bson:"category"`
	Title    string    `json:"title" bson:"title"`
	Subtasks []Subtask `json:"subtasks" bson:"subtasks"`
}

// Progress is a point-in-time completion snapshot for a task.
type Progress struct {
	TaskID    string `json:"taskId"`
	Category  string `json:"category"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
}

// CompletionPercent returns the integer completion percentage for the given
// subtask sequence, using round-half-up semantics. A nil or empty sequence
// yields 0 so callers never divide by zero. The result is always in [0, 100].
func CompletionPercent(subtasks []Subtask) int {
	total := len(subtasks)
	if total == 0 {
		return 0
	}
	completed := 0
	for _, st := range subtasks {
		if st.Completed {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// ProgressOf computes the full progress snapshot for a task.
func ProgressOf(task Task) Progress {
	completed := 0
	for _, st := range task.Subtasks {
		if st.Completed {
			completed++
		}
	}
	return Progress{
		TaskID:    task.ID,
		Category:  task.Category,
		Completed: completed,
		Total:     len(task.Subtasks),
		Percent:   CompletionPercent(task.Subtasks),
	}
}

// Label renders the textual "completed/total" form shown next to indicators.
func (p Progress) Label() string {
	return fmt.Sprintf("%d/%d", p.Completed, p.Total)
}

// CloneSubtasks copies a subtask sequence so snapshots do not alias the
// repository's backing array.
func CloneSubtasks(src []Subtask) []Subtask {
	if src == nil {
		return nil
	}
	dst := make([]Subtask, len(src))
	copy(dst, src)
	return dst
}
