package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
)

// Workflows returns all non-deleted workflows.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.loadWorkflows(ctx, func(*models.Workflow) bool { return true })
}

// WorkflowByID returns a workflow by its ID. Soft-deleted workflows are
// reported as not found.
func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.workflowByIDLocked(id)
}

func (p *Persistence) workflowByIDLocked(id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := p.readJSON(workflowsDir, id, &workflow)
	if err != nil {
		if isNotExist(err) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	if workflow.DeletedAt != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

// SaveWorkflow writes the workflow record, overwriting any existing version.
func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.writeJSON(workflowsDir, workflow.ID, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// DeleteWorkflow soft-deletes a workflow by setting its deleted_at timestamp.
func (p *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflow, err := p.workflowByIDLocked(id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	workflow.DeletedAt = &now

	err = p.writeJSON(workflowsDir, id, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

// ActiveWorkflowsByTrigger returns active workflows matching the trigger type,
// ordered by priority descending then created_at ascending.
func (p *Persistence) ActiveWorkflowsByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflows, err := p.loadWorkflows(ctx, func(w *models.Workflow) bool {
		return w.IsActive && w.TriggerType == triggerType
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		if workflows[i].Priority != workflows[j].Priority {
			return workflows[i].Priority > workflows[j].Priority
		}

		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (p *Persistence) loadWorkflows(_ context.Context, keep func(*models.Workflow) bool) ([]*models.Workflow, error) {
	ids, err := p.ids(workflowsDir)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		var workflow models.Workflow

		err := p.readJSON(workflowsDir, id, &workflow)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		if workflow.DeletedAt != nil || !keep(&workflow) {
			continue
		}

		workflows = append(workflows, &workflow)
	}

	return workflows, nil
}
