package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

type Workflow struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence) *Workflow {
	return &Workflow{
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest carries the fields a client may set on a new workflow.
type CreateWorkflowRequest struct {
	Name          string             `validate:"required,min=1"`
	Description   string
	TriggerType   models.TriggerType `validate:"required"`
	TriggerConfig map[string]any
	Conditions    *models.ConditionNode
	Actions       []models.ActionItem `validate:"dive"`
	Priority      int
	IsActive      bool
	CreatedBy     string
}

// Create validates and persists a new workflow. Nothing is persisted when
// validation fails.
func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	if err := w.validate.Struct(req); err != nil {
		return nil, NewValidationError("Create", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	if err := w.validateWorkflow(req.Name, req.TriggerType, req.Actions, req.IsActive); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		Conditions:    req.Conditions,
		Actions:       req.Actions,
		Priority:      req.Priority,
		IsActive:      req.IsActive,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// UpdateWorkflowRequest carries the fields a client may change. Nil pointers
// leave the current value untouched.
type UpdateWorkflowRequest struct {
	Name          *string
	Description   *string
	TriggerType   *models.TriggerType
	TriggerConfig map[string]any
	Conditions    *models.ConditionNode
	Actions       []models.ActionItem
	Priority      *int
	IsActive      *bool
}

// Update applies a partial update to an existing workflow.
func (w *Workflow) Update(ctx context.Context, id string, req UpdateWorkflowRequest) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		workflow.Name = *req.Name
	}

	if req.Description != nil {
		workflow.Description = *req.Description
	}

	if req.TriggerType != nil {
		workflow.TriggerType = *req.TriggerType
	}

	if req.TriggerConfig != nil {
		workflow.TriggerConfig = req.TriggerConfig
	}

	if req.Conditions != nil {
		workflow.Conditions = req.Conditions
	}

	if req.Actions != nil {
		workflow.Actions = req.Actions
	}

	if req.Priority != nil {
		workflow.Priority = *req.Priority
	}

	if req.IsActive != nil {
		workflow.IsActive = *req.IsActive
	}

	if err := w.validateWorkflow(workflow.Name, workflow.TriggerType, workflow.Actions, workflow.IsActive); err != nil {
		return nil, err
	}

	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// List returns all non-deleted workflows.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID returns one workflow by ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowByID(ctx, id)
}

// Delete soft-deletes a workflow. Its execution history stays readable.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	return w.persistence.DeleteWorkflow(ctx, id)
}

// Executions returns a workflow's execution history, newest first. The
// workflow must exist.
func (w *Workflow) Executions(ctx context.Context, id string) ([]*models.WorkflowExecution, error) {
	if _, err := w.persistence.WorkflowByID(ctx, id); err != nil {
		return nil, err
	}

	return w.persistence.ExecutionsByWorkflow(ctx, id)
}

// Stats aggregates execution history across all workflows.
func (w *Workflow) Stats(ctx context.Context) ([]*models.WorkflowStats, error) {
	stats, err := w.persistence.WorkflowStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate workflow stats: %w", err)
	}

	return stats, nil
}

func (w *Workflow) validateWorkflow(name string, triggerType models.TriggerType, actions []models.ActionItem, isActive bool) error {
	if name == "" {
		return NewValidationError("validateWorkflow", "NAME_REQUIRED", "workflow name is required", ErrWorkflowNameRequired)
	}

	if !triggerType.Valid() {
		return NewValidationError(
			"validateWorkflow",
			"INVALID_TRIGGER_TYPE",
			fmt.Sprintf("invalid trigger type %q", triggerType),
			ErrInvalidTriggerType,
		)
	}

	if isActive && len(actions) == 0 {
		return NewValidationError(
			"validateWorkflow",
			"ACTIONS_REQUIRED",
			"active workflow must have at least one action",
			ErrActionsRequired,
		)
	}

	for i, action := range actions {
		if action.Type == "" {
			return NewValidationError(
				"validateWorkflow",
				"INVALID_ACTION",
				fmt.Sprintf("action %d has no type", i),
				ErrInvalidRequest,
			)
		}
	}

	return nil
}
