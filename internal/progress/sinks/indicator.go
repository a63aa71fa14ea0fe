package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/indicator"
	"github.com/boardkit/boardpulse/internal/progress"
)

// IndicatorSink applies progress events to visual indicator handles resolved
// through a registry. A task with no subtasks has its indicator removed
// rather than rendered at 0%; a missing handle is a logged no-op.
type IndicatorSink struct {
	registry *indicator.Registry
	logger   *zap.Logger
}

// NewIndicatorSink constructs an IndicatorSink over the provided registry.
func NewIndicatorSink(registry *indicator.Registry, logger *zap.Logger) *IndicatorSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndicatorSink{registry: registry, logger: logger}
}

// Consume updates one indicator per event. Missing handles never fail the
// batch: the remaining sinks must still observe the events.
func (s *IndicatorSink) Consume(_ context.Context, batch []progress.Event) error {
	if s == nil || s.registry == nil {
		return nil
	}
	for _, evt := range batch {
		handle, ok := s.registry.Lookup(evt.TaskID)
		if !ok {
			s.logger.Warn("no indicator registered for task",
				zap.String("task_id", evt.TaskID),
				zap.String("category", evt.Category),
			)
			continue
		}
		if evt.Kind == progress.KindRemoved || evt.Total == 0 {
			handle.Remove()
			continue
		}
		handle.SetFill(evt.Percent)
		handle.SetLabel(evt.Progress().Label())
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *IndicatorSink) Close(context.Context) error {
	return nil
}
