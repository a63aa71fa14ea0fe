// Package aggregator implements the progress aggregator: it flips subtask
// completion flags, computes completion percentages, and notifies the
// downstream collaborators (indicator, overlay, remote store, metrics)
// through the progress hub.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/board"
	"github.com/boardkit/boardpulse/internal/progress"
	"github.com/boardkit/boardpulse/internal/view"
)

// ErrTaskNotFound aliases the repository's not-found error so callers can
// match toggle failures without importing the board package.
var ErrTaskNotFound = board.ErrNotFound

// ErrIndexOutOfRange signals a toggle addressed a subtask index the task does
// not have. No mutation and no remote write happen in that case.
var ErrIndexOutOfRange = errors.New("subtask index out of range")

// Clock returns the current time; it exists so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// Aggregator coordinates the toggle flow. It is stateless: all task state
// lives in the repository, all delivery state in the hub and its sinks.
type Aggregator struct {
	repo    board.TaskRepository
	emitter progress.Emitter
	overlay view.Overlay
	clock   Clock
	logger  *zap.Logger
}

// New constructs an Aggregator. The overlay may be nil when no detail view
// exists in the deployment.
func New(
	repo board.TaskRepository,
	emitter progress.Emitter,
	overlay view.Overlay,
	clock Clock,
	logger *zap.Logger,
) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		repo:    repo,
		emitter: emitter,
		overlay: overlay,
		clock:   clock,
		logger:  logger,
	}
}

// Toggle flips the completion flag of one subtask, persists the task
// optimistically, and emits a single progress event carrying the exact
// post-toggle subtask sequence. The remote write happens downstream of the
// hub and is best-effort: its failure is logged, never surfaced here, and
// the local mutation is not rolled back.
func (a *Aggregator) Toggle(ctx context.Context, category, taskID string, index int) (board.Progress, error) {
	task, err := a.repo.Get(ctx, category, taskID)
	if err != nil {
		if errors.Is(err, board.ErrNotFound) {
			a.logger.Warn("toggle for unknown task",
				zap.String("task_id", taskID),
				zap.String("category", category),
			)
			return board.Progress{}, ErrTaskNotFound
		}
		return board.Progress{}, fmt.Errorf("load task: %w", err)
	}

	if index < 0 || index >= len(task.Subtasks) {
		a.logger.Error("toggle index out of range",
			zap.String("task_id", taskID),
			zap.String("category", category),
			zap.Int("index", index),
			zap.Int("subtasks", len(task.Subtasks)),
		)
		return board.Progress{}, ErrIndexOutOfRange
	}

	task.Subtasks[index].Completed = !task.Subtasks[index].Completed

	// Optimistic update: the repository mutation lands before the remote
	// store confirms, and stays even if the remote write fails.
	if err := a.repo.Put(ctx, task); err != nil {
		return board.Progress{}, fmt.Errorf("store toggled task: %w", err)
	}

	a.notify(progress.KindToggle, task)
	return board.ProgressOf(task), nil
}

// Publish recomputes a task's progress and notifies all collaborators
// without mutating anything. Callers use it after creating or replacing a
// task so indicators and the remote document converge.
func (a *Aggregator) Publish(_ context.Context, task board.Task) board.Progress {
	a.notify(progress.KindSnapshot, task)
	return board.ProgressOf(task)
}

// Forget announces a task's removal so downstream views drop its indicator.
// The repository delete itself is owned by the caller.
func (a *Aggregator) Forget(_ context.Context, task board.Task) {
	a.notify(progress.KindRemoved, task)
}

func (a *Aggregator) notify(kind progress.Kind, task board.Task) {
	if a.overlay != nil {
		a.overlay.Refresh(task.Category, task)
	}
	if a.emitter != nil {
		a.emitter.Emit(progress.Snapshot(kind, task, a.now()))
	}
}

func (a *Aggregator) now() time.Time {
	if a.clock != nil {
		return a.clock.Now()
	}
	return time.Now().UTC()
}
