package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/mbarbosa/flowgate/pkg/channels/gochannel"
	"github.com/mbarbosa/flowgate/pkg/eventbus"
	"github.com/mbarbosa/flowgate/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishAndSubscribe(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	received := make(chan *events.ExecutionCompleted, 1)

	err = bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.ExecutionCompleted)
		require.True(t, ok)

		received <- completed

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = bus.Subscribe(ctx)
	require.NoError(t, err)

	event := events.ExecutionCompleted{
		BaseEvent:       events.NewBaseEvent(events.ExecutionCompletedEvent, "wf-1"),
		ExecutionID:     "exec-1",
		DurationMs:      42,
		ActionsExecuted: 2,
	}

	err = bus.Publish(ctx, "wf-1", event)
	require.NoError(t, err)

	select {
	case completed := <-received:
		assert.Equal(t, "wf-1", completed.WorkflowID)
		assert.Equal(t, "exec-1", completed.ExecutionID)
		assert.Equal(t, 2, completed.ActionsExecuted)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledEventTypeIsAcked(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = bus.Subscribe(ctx)
	require.NoError(t, err)

	event := events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, "wf-1"),
		ExecutionID: "exec-1",
	}

	// No handler registered; publish must still succeed.
	err = bus.Publish(ctx, "wf-1", event)
	assert.NoError(t, err)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
