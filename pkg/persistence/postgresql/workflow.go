package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
)

const workflowColumns = `id, name, description, trigger_type, trigger_config,
	conditions, actions, priority, is_active, created_by, created_at, updated_at`

// SaveWorkflow inserts or updates a workflow definition.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	triggerConfig, err := marshalJSON(workflow.TriggerConfig)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	conditions, err := marshalJSON(workflow.Conditions)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	actions, err := marshalJSON(workflow.Actions)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (id, name, description, trigger_type, trigger_config,
			conditions, actions, priority, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			priority = EXCLUDED.priority,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`

	_, err = p.db.ExecContext(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, workflow.TriggerType,
		triggerConfig, conditions, actions, workflow.Priority, workflow.IsActive,
		nullString(workflow.CreatedBy), workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// WorkflowByID returns a workflow by its ID. Soft-deleted workflows are not
// visible.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1 AND deleted_at IS NULL`

	workflow, err := scanWorkflow(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

// Workflows returns all non-deleted workflows.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows WHERE deleted_at IS NULL ORDER BY created_at ASC`

	return p.queryWorkflows(ctx, query)
}

// ActiveWorkflowsByTrigger returns active workflows for a trigger type,
// highest priority first, ties broken by creation time.
func (p *Persistence) ActiveWorkflowsByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE trigger_type = $1 AND is_active AND deleted_at IS NULL
		ORDER BY priority DESC, created_at ASC`

	return p.queryWorkflows(ctx, query, triggerType)
}

// DeleteWorkflow marks a workflow deleted. Its execution history stays
// readable.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	query := `UPDATE workflows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (p *Persistence) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}
	defer func() { _ = rows.Close() }()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.NewWorkflowError("List", "", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}

	return workflows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow      models.Workflow
		triggerConfig []byte
		conditions    []byte
		actions       []byte
		createdBy     sql.NullString
	)

	err := row.Scan(&workflow.ID, &workflow.Name, &workflow.Description,
		&workflow.TriggerType, &triggerConfig, &conditions, &actions,
		&workflow.Priority, &workflow.IsActive, &createdBy,
		&workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	workflow.CreatedBy = createdBy.String

	if err := unmarshalJSON(triggerConfig, &workflow.TriggerConfig); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(conditions, &workflow.Conditions); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(actions, &workflow.Actions); err != nil {
		return nil, err
	}

	return &workflow, nil
}
