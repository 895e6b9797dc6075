// Package scheduler fires time and condition triggers from cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbarbosa/flowgate/pkg/config"
	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/robfig/cron/v3"
)

// TriggerDispatcher runs a trigger batch. Satisfied by
// workflow.TriggerProcessor.
type TriggerDispatcher interface {
	ProcessTriggers(ctx context.Context, triggerType models.TriggerType, triggerData map[string]any, contextData map[string]any) (*models.TriggerBatchResult, error)
}

type Scheduler struct {
	logger     *slog.Logger
	dispatcher TriggerDispatcher
	cron       *cron.Cron
}

func NewScheduler(logger *slog.Logger, dispatcher TriggerDispatcher) *Scheduler {
	return &Scheduler{
		logger:     logger.With("module", "scheduler"),
		dispatcher: dispatcher,
		cron:       cron.New(),
	}
}

// Register adds the configured schedules and the condition polling entry.
// Must be called before Start.
func (s *Scheduler) Register(ctx context.Context, cfg config.TriggerConfig) error {
	for _, schedule := range cfg.Schedules {
		triggerData := schedule.TriggerData

		_, err := s.cron.AddFunc(schedule.Cron, func() {
			s.dispatch(ctx, models.TriggerTypeTime, withFiredAt(triggerData))
		})
		if err != nil {
			return err
		}

		s.logger.Info("Registered time trigger schedule", "cron", schedule.Cron)
	}

	if cfg.ConditionPollCron != "" {
		_, err := s.cron.AddFunc(cfg.ConditionPollCron, func() {
			s.dispatch(ctx, models.TriggerTypeCondition, withFiredAt(nil))
		})
		if err != nil {
			return err
		}

		s.logger.Info("Registered condition polling", "cron", cfg.ConditionPollCron)
	}

	return nil
}

// RegisterWorkflowSchedules adds one cron entry per time-trigger workflow,
// read from the workflow's trigger_config "cron" key. Each tick dispatches a
// time trigger scoped to that workflow via the workflow_id trigger data key.
// Workflows without a cron expression are skipped.
func (s *Scheduler) RegisterWorkflowSchedules(ctx context.Context, workflows []*models.Workflow) error {
	for _, workflow := range workflows {
		expression, _ := workflow.TriggerConfig["cron"].(string)
		if expression == "" {
			s.logger.Warn("Time trigger workflow has no cron expression, skipping",
				"workflow_id", workflow.ID)

			continue
		}

		workflowID := workflow.ID

		_, err := s.cron.AddFunc(expression, func() {
			s.dispatch(ctx, models.TriggerTypeTime, withFiredAt(map[string]any{"workflow_id": workflowID}))
		})
		if err != nil {
			return fmt.Errorf("workflow %s: invalid cron expression %q: %w", workflowID, expression, err)
		}

		s.logger.Info("Registered workflow schedule", "workflow_id", workflowID, "cron", expression)
	}

	return nil
}

// Start begins firing registered schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron runner and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

func (s *Scheduler) dispatch(ctx context.Context, triggerType models.TriggerType, triggerData map[string]any) {
	batch, err := s.dispatcher.ProcessTriggers(ctx, triggerType, triggerData, nil)
	if err != nil {
		s.logger.Error("Trigger dispatch failed", "trigger_type", triggerType, "error", err)

		return
	}

	s.logger.Info("Trigger batch processed",
		"trigger_type", triggerType,
		"total", batch.TotalTriggers,
		"processed", batch.TriggersProcessed)
}

func withFiredAt(triggerData map[string]any) map[string]any {
	data := make(map[string]any, len(triggerData)+1)
	for k, v := range triggerData {
		data[k] = v
	}

	data["fired_at"] = time.Now().UTC().Format(time.RFC3339)

	return data
}
