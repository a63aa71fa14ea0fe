package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/boardkit/boardpulse/internal/progress"
	pubmemory "github.com/boardkit/boardpulse/internal/publisher/memory"
)

func TestPublisherSinkForwardsEvents(t *testing.T) {
	t.Parallel()

	pub := pubmemory.New()
	sink := NewPublisherSink(pub, "board-progress")

	now := time.Now()
	batch := []progress.Event{
		{Kind: progress.KindToggle, TaskID: "t-1", Category: "todo", TS: now, Completed: 1, Total: 2, Percent: 50},
		{Kind: progress.KindRemoved, TaskID: "t-2", Category: "done", TS: now},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "board-progress", msgs[0].Topic)

	first, ok := msgs[0].Payload.(ProgressMessage)
	require.True(t, ok)
	require.Equal(t, "SUBTASK_TOGGLED", first.Kind)
	require.Equal(t, "t-1", first.TaskID)
	require.Equal(t, 50, first.Percent)
}

func TestPublisherSinkNilPublisherIsNoOp(t *testing.T) {
	t.Parallel()

	sink := NewPublisherSink(nil, "board-progress")
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{{}}))
}
