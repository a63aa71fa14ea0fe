package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/progress"
)

// LogSink emits structured logs for debugging progress streams. It is useful
// during development or audits where a durable store is unavailable.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("progress event",
			zap.String("kind", string(evt.Kind)),
			zap.String("task_id", evt.TaskID),
			zap.String("category", evt.Category),
			zap.Int("completed", evt.Completed),
			zap.Int("total", evt.Total),
			zap.Int("percent", evt.Percent),
			zap.Time("ts", evt.TS),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
