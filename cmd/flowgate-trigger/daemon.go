package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbarbosa/flowgate/pkg/cmd"
	"github.com/mbarbosa/flowgate/pkg/config"
	"github.com/mbarbosa/flowgate/pkg/log"
	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/receivers/queue"
	"github.com/mbarbosa/flowgate/pkg/scheduler"
	"github.com/mbarbosa/flowgate/pkg/workflow"
)

func runDaemon(ctx context.Context, databaseURL, configPath string) error {
	logger := log.WithModule("trigger")
	logger.InfoContext(ctx, "Initializing Flowgate trigger daemon")

	cfg, err := config.LoadTriggerConfig(configPath)
	if err != nil {
		return err
	}

	persistence, err := cmd.NewPersistence(ctx, logger, databaseURL)
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	if err := cmd.SubscribeLogging(ctx, eventBus, logger); err != nil {
		return err
	}

	collaborators, err := cmd.NewCollaborators(cfg.CRM, logger)
	if err != nil {
		return err
	}

	registry := cmd.NewRegistry(logger, collaborators)
	executor := workflow.NewExecutor(logger, persistence, registry, eventBus)
	processor := workflow.NewTriggerProcessor(logger, persistence, executor, eventBus)

	sched := scheduler.NewScheduler(logger, processor)
	if err := sched.Register(ctx, cfg); err != nil {
		return err
	}

	timeWorkflows, err := persistence.ActiveWorkflowsByTrigger(ctx, models.TriggerTypeTime)
	if err != nil {
		return err
	}

	if err := sched.RegisterWorkflowSchedules(ctx, timeWorkflows); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	if cfg.Queue.Enabled {
		receiver, err := queue.NewReceiver(cfg.Queue, logger)
		if err != nil {
			return err
		}

		err = receiver.Start(ctx, func(ctx context.Context, triggerData map[string]any) error {
			_, err := processor.ProcessTriggers(ctx, models.TriggerTypeEvent, triggerData, nil)

			return err
		})
		if err != nil {
			return err
		}

		defer func() {
			if err := receiver.Stop(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to stop queue receiver", "error", err)
			}
		}()
	}

	logger.InfoContext(ctx, "Trigger daemon running",
		"schedules", len(cfg.Schedules),
		"workflow_schedules", len(timeWorkflows),
		"queue_enabled", cfg.Queue.Enabled)

	waitForShutdown(ctx, logger)

	return nil
}

func waitForShutdown(ctx context.Context, logger *slog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.InfoContext(ctx, "Received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.InfoContext(ctx, "Context cancelled, shutting down")
	}
}
