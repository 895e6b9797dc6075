// Package workflow runs workflow executions: it gates on conditions, runs
// actions in order, and records the outcome of every run.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mbarbosa/flowgate/pkg/condition"
	"github.com/mbarbosa/flowgate/pkg/eventbus"
	"github.com/mbarbosa/flowgate/pkg/events"
	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
	"github.com/mbarbosa/flowgate/pkg/registry"
)

const defaultActionTimeout = 30 * time.Second

type Executor struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	evaluator   *condition.Evaluator
	publisher   eventbus.EventPublisher

	// actionTimeout bounds a single action run.
	actionTimeout time.Duration
}

type ExecutorOption func(*Executor)

// WithActionTimeout overrides the per-action execution deadline.
func WithActionTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.actionTimeout = timeout
	}
}

func NewExecutor(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	publisher eventbus.EventPublisher,
	opts ...ExecutorOption,
) *Executor {
	executor := &Executor{
		logger:        logger.With("module", "workflow_executor"),
		persistence:   persistence,
		registry:      registry,
		evaluator:     condition.NewEvaluator(),
		publisher:     publisher,
		actionTimeout: defaultActionTimeout,
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Execute runs a workflow against trigger data and returns the persisted
// execution record. The workflow must exist, not be deleted, and be active;
// those failures create no record. Every run past that point is recorded: a
// false condition gate finalizes the record as completed with zero action
// results, a condition evaluation error finalizes it as failed without
// running any action.
func (e *Executor) Execute(
	ctx context.Context,
	workflowID string,
	triggerData map[string]any,
	contextData map[string]any,
) (*models.WorkflowExecution, error) {
	logger := e.logger.With("workflow_id", workflowID)

	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if !workflow.IsActive {
		return nil, persistence.NewWorkflowError("Execute", workflowID, persistence.ErrWorkflowNotFound)
	}

	execution := &models.WorkflowExecution{
		ID:          uuid.NewString(),
		WorkflowID:  workflowID,
		TriggerData: triggerData,
		Context:     contextData,
		Status:      models.ExecutionStatusPending,
		StartedAt:   time.Now().UTC(),
	}

	err = e.persistence.SaveExecution(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}

	logger = logger.With("execution_id", execution.ID)

	execution.Status = models.ExecutionStatusRunning
	if err := e.persistence.SaveExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to mark execution running: %w", err)
	}

	e.publishStarted(ctx, workflow, execution)

	matched, evalErr := e.evaluator.Evaluate(workflow.Conditions, triggerData, contextData)
	if evalErr != nil {
		execution.Status = models.ExecutionStatusFailed
		execution.Error = fmt.Sprintf("condition evaluation failed: %v", evalErr)

		if err := e.finalize(ctx, execution, 0); err != nil {
			return nil, err
		}

		return execution, fmt.Errorf("failed to evaluate conditions for workflow %s: %w", workflowID, evalErr)
	}

	if !matched {
		logger.Info("Workflow conditions did not match, completing without actions")

		execution.Status = models.ExecutionStatusCompleted

		if err := e.finalize(ctx, execution, 0); err != nil {
			return nil, err
		}

		return execution, nil
	}

	logger.Info("Starting workflow actions", "actions", len(workflow.Actions))

	executionCtx := models.ExecutionContext{
		WorkflowID:  workflowID,
		ExecutionID: execution.ID,
		TriggerData: triggerData,
		Context:     contextData,
	}

	failures := 0

	for index, item := range workflow.Actions {
		result := e.runAction(ctx, logger, index, item, executionCtx)
		if result.Status == models.ActionResultStatusFailed {
			failures++
		}

		execution.ActionResults = append(execution.ActionResults, result)
	}

	if failures > 0 {
		execution.Status = models.ExecutionStatusFailed
		execution.Error = fmt.Sprintf("%d of %d actions failed", failures, len(workflow.Actions))
	} else {
		execution.Status = models.ExecutionStatusCompleted
	}

	if err := e.finalize(ctx, execution, failures); err != nil {
		return nil, err
	}

	logger.Info("Workflow execution finished",
		"status", execution.Status,
		"actions_failed", failures,
		"duration", execution.CompletedAt.Sub(execution.StartedAt))

	return execution, nil
}

// finalize stamps the completion time, persists the terminal record, and
// publishes the finished event.
func (e *Executor) finalize(ctx context.Context, execution *models.WorkflowExecution, failures int) error {
	completedAt := time.Now().UTC()
	execution.CompletedAt = &completedAt

	if err := e.persistence.SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to finalize execution record: %w", err)
	}

	e.publishFinished(ctx, execution, failures)

	return nil
}

// runAction executes a single action. Failures never propagate: the outcome
// is captured in the returned result so later actions still run.
func (e *Executor) runAction(
	ctx context.Context,
	logger *slog.Logger,
	index int,
	item models.ActionItem,
	executionCtx models.ExecutionContext,
) models.ActionResult {
	result := models.ActionResult{
		Index:     index,
		Type:      item.Type,
		Status:    models.ActionResultStatusCompleted,
		StartedAt: time.Now().UTC(),
	}

	logger = logger.With("action_index", index, "action_type", item.Type)

	output, err := e.executeAction(ctx, logger, item, executionCtx)

	result.CompletedAt = time.Now().UTC()

	if err != nil {
		logger.Warn("Action failed", "error", err)

		result.Status = models.ActionResultStatusFailed
		result.Error = err.Error()

		return result
	}

	result.Output = output

	return result
}

func (e *Executor) executeAction(
	ctx context.Context,
	logger *slog.Logger,
	item models.ActionItem,
	executionCtx models.ExecutionContext,
) (output any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("action panicked: %v", recovered)
		}
	}()

	action, err := e.registry.CreateAction(item.Type, item.Config)
	if err != nil {
		return nil, err
	}

	if err := action.Validate(); err != nil {
		return nil, err
	}

	timeout := e.actionTimeout
	if seconds := timeoutSeconds(item.Config["timeout_seconds"]); seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return action.Execute(actionCtx, executionCtx, logger)
}

func timeoutSeconds(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func (e *Executor) publishStarted(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution) {
	if e.publisher == nil {
		return
	}

	event := events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID:  execution.ID,
		WorkflowName: workflow.Name,
		TriggerType:  string(workflow.TriggerType),
		TriggerData:  execution.TriggerData,
	}

	if err := e.publisher.Publish(ctx, workflow.ID, event); err != nil {
		e.logger.Warn("Failed to publish execution started event", "error", err)
	}
}

func (e *Executor) publishFinished(ctx context.Context, execution *models.WorkflowExecution, failures int) {
	if e.publisher == nil {
		return
	}

	durationMs := execution.CompletedAt.Sub(execution.StartedAt).Milliseconds()

	var event eventbus.Event
	if execution.Status == models.ExecutionStatusFailed {
		event = events.ExecutionFailed{
			BaseEvent:       events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
			ExecutionID:     execution.ID,
			Error:           execution.Error,
			DurationMs:      durationMs,
			ActionsExecuted: len(execution.ActionResults),
			ActionsFailed:   failures,
		}
	} else {
		event = events.ExecutionCompleted{
			BaseEvent:       events.NewBaseEvent(events.ExecutionCompletedEvent, execution.WorkflowID),
			ExecutionID:     execution.ID,
			DurationMs:      durationMs,
			ActionsExecuted: len(execution.ActionResults),
		}
	}

	if err := e.publisher.Publish(ctx, execution.WorkflowID, event); err != nil {
		e.logger.Warn("Failed to publish execution finished event", "error", err)
	}
}
