package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/boardkit/boardpulse/internal/progress"
	"github.com/boardkit/boardpulse/internal/publisher"
)

// PublisherSink forwards progress events to a message bus so other board
// consumers (analytics, notification fan-out) can react to completion
// changes. The payload omits the subtask snapshot: subscribers read the
// authoritative sequence from the remote store.
type PublisherSink struct {
	pub   publisher.Publisher
	topic string
}

// ProgressMessage is the published payload for one event.
type ProgressMessage struct {
	Kind      string    `json:"kind"`
	TaskID    string    `json:"taskId"`
	Category  string    `json:"category"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Percent   int       `json:"percent"`
	TS        time.Time `json:"ts"`
}

// NewPublisherSink constructs a PublisherSink bound to a topic name.
func NewPublisherSink(pub publisher.Publisher, topic string) *PublisherSink {
	return &PublisherSink{pub: pub, topic: topic}
}

// Consume publishes one message per event, in batch order.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.pub == nil {
		return nil
	}
	for _, evt := range batch {
		msg := ProgressMessage{
			Kind:      string(evt.Kind),
			TaskID:    evt.TaskID,
			Category:  evt.Category,
			Completed: evt.Completed,
			Total:     evt.Total,
			Percent:   evt.Percent,
			TS:        evt.TS,
		}
		if _, err := s.pub.Publish(ctx, s.topic, msg); err != nil {
			return fmt.Errorf("publish progress message: %w", err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PublisherSink) Close(context.Context) error {
	return nil
}
