package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/mbarbosa/flowgate/pkg/channels/gochannel"
	"github.com/mbarbosa/flowgate/pkg/eventbus"
	"github.com/mbarbosa/flowgate/pkg/events"
)

// NewEventBus creates the in-memory watermill event bus shared by the API and
// the trigger daemon.
func NewEventBus(logger *slog.Logger) eventbus.EventBus {
	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	if err != nil {
		panic(fmt.Errorf("failed to create event channel: %w", err))
	}

	return eventbus.NewWatermillEventBus(pub, sub)
}

// SubscribeLogging attaches a logging subscriber for every execution lifecycle
// event and starts consuming. Publishing stays fire-and-forget for the engine;
// this subscriber only makes the lifecycle visible in the logs.
func SubscribeLogging(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	logger = logger.With("module", "event_log")

	handlers := map[events.EventType]eventbus.EventHandler{
		events.ExecutionStartedEvent: func(ctx context.Context, event any) error {
			if e, ok := event.(*events.ExecutionStarted); ok {
				logger.InfoContext(ctx, "Execution started",
					"workflow_id", e.WorkflowID,
					"execution_id", e.ExecutionID,
					"trigger_type", e.TriggerType)
			}

			return nil
		},
		events.ExecutionCompletedEvent: func(ctx context.Context, event any) error {
			if e, ok := event.(*events.ExecutionCompleted); ok {
				logger.InfoContext(ctx, "Execution completed",
					"workflow_id", e.WorkflowID,
					"execution_id", e.ExecutionID,
					"duration_ms", e.DurationMs,
					"actions_executed", e.ActionsExecuted)
			}

			return nil
		},
		events.ExecutionFailedEvent: func(ctx context.Context, event any) error {
			if e, ok := event.(*events.ExecutionFailed); ok {
				logger.WarnContext(ctx, "Execution failed",
					"workflow_id", e.WorkflowID,
					"execution_id", e.ExecutionID,
					"error", e.Error,
					"actions_failed", e.ActionsFailed)
			}

			return nil
		},
		events.TriggersProcessedEvent: func(ctx context.Context, event any) error {
			if e, ok := event.(*events.TriggersProcessed); ok {
				logger.InfoContext(ctx, "Trigger batch processed",
					"trigger_type", e.TriggerType,
					"total", e.TotalTriggers,
					"processed", e.TriggersProcessed)
			}

			return nil
		},
	}

	for eventType, handler := range handlers {
		if err := bus.Handle(eventType, handler); err != nil {
			return fmt.Errorf("failed to register handler for %s: %w", eventType, err)
		}
	}

	return bus.Subscribe(ctx)
}
