package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/boardkit/boardpulse/internal/progress"
)

// PrometheusSink exports task progress metrics. It owns the collectors for
// toggle counts, per-category completion, and indicator removals.
type PrometheusSink struct {
	toggles        *prometheus.CounterVec
	snapshots      prometheus.Counter
	removals       prometheus.Counter
	taskCompletion *prometheus.GaugeVec
	subtaskCount   *prometheus.GaugeVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "board_subtask_toggles_total",
			Help: "Total subtask toggles partitioned by category.",
		}, []string{"category"}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "board_progress_snapshots_total",
			Help: "Total non-toggle progress recomputations.",
		}),
		removals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "board_task_removals_total",
			Help: "Total task removal events observed.",
		}),
		taskCompletion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "board_task_completion_percent",
			Help: "Latest completion percentage per task.",
		}, []string{"category", "task_id"}),
		subtaskCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "board_task_subtasks",
			Help: "Latest subtask count per task.",
		}, []string{"category", "task_id"}),
	}
	for _, collector := range []prometheus.Collector{
		s.toggles,
		s.snapshots,
		s.removals,
		s.taskCompletion,
		s.subtaskCount,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch. It is safe for
// concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Kind {
		case progress.KindToggle:
			s.toggles.WithLabelValues(evt.Category).Inc()
			s.observe(evt)
		case progress.KindSnapshot:
			s.snapshots.Inc()
			s.observe(evt)
		case progress.KindRemoved:
			s.removals.Inc()
			s.taskCompletion.DeleteLabelValues(evt.Category, evt.TaskID)
			s.subtaskCount.DeleteLabelValues(evt.Category, evt.TaskID)
		}
	}
	return nil
}

func (s *PrometheusSink) observe(evt progress.Event) {
	s.taskCompletion.WithLabelValues(evt.Category, evt.TaskID).Set(float64(evt.Percent))
	s.subtaskCount.WithLabelValues(evt.Category, evt.TaskID).Set(float64(evt.Total))
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
