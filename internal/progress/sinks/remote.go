package sinks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/docstore"
	"github.com/boardkit/boardpulse/internal/progress"
)

// RemoteSink replaces subtask documents in the remote store. Within a batch
// it collapses events to the latest snapshot per task, so the write stays
// last-write-wins on the full array. A failed write for one task never
// blocks the others: each failure is logged with its task context and the
// joined error surfaces to the hub. The local mutation is never rolled back.
type RemoteSink struct {
	store  docstore.Store
	logger *zap.Logger
}

// NewRemoteSink constructs a RemoteSink for the provided document store.
func NewRemoteSink(store docstore.Store, logger *zap.Logger) *RemoteSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteSink{store: store, logger: logger}
}

// Consume collapses the batch per task and issues one replacement write per
// surviving snapshot. Removal events are skipped: task deletion is owned by
// the repository layer, not the progress stream.
func (s *RemoteSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.store == nil {
		return nil
	}
	type docKey struct {
		category string
		taskID   string
	}
	latest := make(map[docKey]progress.Event)
	order := make([]docKey, 0, len(batch))

	for _, evt := range batch {
		if evt.Kind == progress.KindRemoved {
			continue
		}
		key := docKey{category: evt.Category, taskID: evt.TaskID}
		prev, seen := latest[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || evt.TS.After(prev.TS) {
			latest[key] = evt
		}
	}

	var errs []error
	for _, key := range order {
		evt := latest[key]
		start := time.Now()
		if err := s.store.ReplaceSubtasks(ctx, key.category, key.taskID, evt.Subtasks); err != nil {
			s.logger.Warn("remote subtask replacement failed",
				zap.String("task_id", key.taskID),
				zap.String("category", key.category),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("replace subtasks for %s/%s: %w", key.category, key.taskID, err))
			continue
		}
		s.logger.Debug("replaced remote subtask document",
			zap.String("task_id", key.taskID),
			zap.String("category", key.category),
			zap.Int("subtasks", len(evt.Subtasks)),
			zap.Duration("dur", time.Since(start)),
		)
	}
	return errors.Join(errs...)
}

// Close implements the Sink interface; it performs no action.
func (s *RemoteSink) Close(context.Context) error {
	return nil
}
