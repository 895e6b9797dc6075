// Package persistence provides the data storage abstraction for workflows,
// executions, and templates.
package persistence

import (
	"context"

	"github.com/mbarbosa/flowgate/pkg/models"
)

// Persistence is the engine's only contract with its storage collaborator:
// workflow CRUD, append-style execution records, and template storage.
// Implementations own their write isolation.
type Persistence interface {
	// Workflows returns all non-deleted workflows.
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	// DeleteWorkflow soft-deletes by setting the deleted_at timestamp.
	DeleteWorkflow(ctx context.Context, id string) error
	// ActiveWorkflowsByTrigger returns active workflows matching the trigger
	// type, ordered by priority descending then created_at ascending.
	ActiveWorkflowsByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error)

	// SaveExecution inserts a new execution record or updates an unfinished
	// one. Finished executions are immutable: updating one fails with
	// ErrExecutionFinished.
	SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)
	// WorkflowStats aggregates execution history per workflow.
	WorkflowStats(ctx context.Context) ([]*models.WorkflowStats, error)

	SaveTemplate(ctx context.Context, template *models.WorkflowTemplate) error
	TemplateByID(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	Templates(ctx context.Context) ([]*models.WorkflowTemplate, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
