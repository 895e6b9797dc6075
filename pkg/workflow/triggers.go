package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mbarbosa/flowgate/pkg/eventbus"
	"github.com/mbarbosa/flowgate/pkg/events"
	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
)

// TriggerProcessor fans a trigger out to every matching active workflow.
type TriggerProcessor struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	executor    *Executor
	publisher   eventbus.EventPublisher
}

func NewTriggerProcessor(
	logger *slog.Logger,
	persistence persistence.Persistence,
	executor *Executor,
	publisher eventbus.EventPublisher,
) *TriggerProcessor {
	return &TriggerProcessor{
		logger:      logger.With("module", "trigger_processor"),
		persistence: persistence,
		executor:    executor,
		publisher:   publisher,
	}
}

// ProcessTriggers runs every active workflow registered for the trigger type,
// highest priority first. A workflow failure never aborts the batch: each
// result carries its own outcome.
func (p *TriggerProcessor) ProcessTriggers(
	ctx context.Context,
	triggerType models.TriggerType,
	triggerData map[string]any,
	contextData map[string]any,
) (*models.TriggerBatchResult, error) {
	logger := p.logger.With("trigger_type", triggerType)

	if !triggerType.Valid() {
		return nil, fmt.Errorf("unknown trigger type %q", triggerType)
	}

	workflows, err := p.persistence.ActiveWorkflowsByTrigger(ctx, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows for trigger %s: %w", triggerType, err)
	}

	// Per-workflow schedules fire with a workflow_id in the trigger data so the
	// batch only runs the workflow whose cron entry is due.
	if workflowID, ok := triggerData["workflow_id"].(string); ok && workflowID != "" {
		workflows = filterByID(workflows, workflowID)
	}

	batch := &models.TriggerBatchResult{
		TriggerType:   triggerType,
		TotalTriggers: len(workflows),
		Results:       make([]models.TriggerResult, 0, len(workflows)),
	}

	logger.Info("Processing triggers", "workflows", len(workflows))

	for _, workflow := range workflows {
		result := p.processOne(ctx, workflow, triggerData, contextData)

		if !result.Skipped && result.Error == "" {
			batch.TriggersProcessed++
		}

		batch.Results = append(batch.Results, result)
	}

	p.publishBatch(ctx, batch)

	return batch, nil
}

func filterByID(workflows []*models.Workflow, workflowID string) []*models.Workflow {
	filtered := make([]*models.Workflow, 0, 1)

	for _, workflow := range workflows {
		if workflow.ID == workflowID {
			filtered = append(filtered, workflow)
		}
	}

	return filtered
}

func (p *TriggerProcessor) processOne(
	ctx context.Context,
	workflow *models.Workflow,
	triggerData map[string]any,
	contextData map[string]any,
) models.TriggerResult {
	result := models.TriggerResult{
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Name,
	}

	execution, err := p.executor.Execute(ctx, workflow.ID, triggerData, contextData)
	if execution != nil {
		result.ExecutionID = execution.ID
		result.Status = execution.Status
		result.Skipped = execution.Skipped()
	}

	if err != nil {
		p.logger.Error("Workflow trigger failed", "workflow_id", workflow.ID, "error", err)

		result.Error = err.Error()
	}

	return result
}

func (p *TriggerProcessor) publishBatch(ctx context.Context, batch *models.TriggerBatchResult) {
	if p.publisher == nil {
		return
	}

	event := events.TriggersProcessed{
		BaseEvent:         events.NewBaseEvent(events.TriggersProcessedEvent, ""),
		TriggerType:       string(batch.TriggerType),
		TotalTriggers:     batch.TotalTriggers,
		TriggersProcessed: batch.TriggersProcessed,
	}

	if err := p.publisher.Publish(ctx, string(batch.TriggerType), event); err != nil {
		p.logger.Warn("Failed to publish trigger batch event", "error", err)
	}
}
