package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/boardkit/boardpulse/internal/board"
)

// Kind denotes what caused a progress Event.
type Kind string

// Supported event kinds.
const (
	// KindToggle is emitted after a subtask completion flag is flipped.
	KindToggle Kind = "SUBTASK_TOGGLED"
	// KindSnapshot is emitted when a task's progress is recomputed without
	// a toggle, e.g. after a create or a full subtask replacement.
	KindSnapshot Kind = "PROGRESS_SNAPSHOT"
	// KindRemoved is emitted when a task is deleted so downstream views can
	// drop its indicator.
	KindRemoved Kind = "TASK_REMOVED"
)

// Event captures one task progress milestone. It carries the full post-change
// subtask snapshot so the remote sink can issue a whole-array replacement
// without another repository read.
type Event struct {
	// Kind denotes which milestone occurred.
	Kind Kind
	// TaskID identifies the task within its category.
	TaskID string
	// Category is the board column label owning the task.
	Category string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Completed counts subtasks with the completion flag set.
	Completed int
	// Total is the length of the subtask sequence.
	Total int
	// Percent is the integer completion percentage in [0, 100].
	Percent int
	// Subtasks is the post-change snapshot replacing the remote document.
	Subtasks []board.Subtask
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TaskID == "" {
		return errors.New("task id is required")
	}
	if e.Category == "" {
		return errors.New("category is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Kind {
	case KindToggle, KindSnapshot, KindRemoved:
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.Total < 0 {
		return errors.New("total must be >= 0")
	}
	if e.Completed < 0 || e.Completed > e.Total {
		return errors.New("completed must be in [0, total]")
	}
	if e.Percent < 0 || e.Percent > 100 {
		return errors.New("percent must be in [0, 100]")
	}
	if e.Total == 0 && e.Percent != 0 {
		return errors.New("percent must be 0 when total is 0")
	}
	return nil
}

// Snapshot builds an Event of the given kind from a task's current state.
func Snapshot(kind Kind, task board.Task, at time.Time) Event {
	p := board.ProgressOf(task)
	return Event{
		Kind:      kind,
		TaskID:    task.ID,
		Category:  task.Category,
		TS:        at.UTC(),
		Completed: p.Completed,
		Total:     p.Total,
		Percent:   p.Percent,
		Subtasks:  board.CloneSubtasks(task.Subtasks),
	}
}

// Progress converts the event back into the domain snapshot form.
func (e Event) Progress() board.Progress {
	return board.Progress{
		TaskID:    e.TaskID,
		Category:  e.Category,
		Completed: e.Completed,
		Total:     e.Total,
		Percent:   e.Percent,
	}
}
