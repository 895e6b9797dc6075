package file

import (
	"context"
	"sort"

	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
)

// SaveExecution inserts or updates an execution record. A record that already
// reached a terminal status is immutable.
func (p *Persistence) SaveExecution(_ context.Context, execution *models.WorkflowExecution) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var existing models.WorkflowExecution

	err := p.readJSON(executionsDir, execution.ID, &existing)
	if err == nil && existing.Finished() {
		return &persistence.ExecutionError{Op: "Save", ExecutionID: execution.ID, Err: persistence.ErrExecutionFinished}
	}

	err = p.writeJSON(executionsDir, execution.ID, execution)
	if err != nil {
		return &persistence.ExecutionError{Op: "Save", ExecutionID: execution.ID, Err: err}
	}

	return nil
}

// ExecutionByID returns an execution record by its ID.
func (p *Persistence) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var execution models.WorkflowExecution

	err := p.readJSON(executionsDir, id, &execution)
	if err != nil {
		if isNotExist(err) {
			return nil, &persistence.ExecutionError{Op: "GetByID", ExecutionID: id, Err: persistence.ErrExecutionNotFound}
		}

		return nil, &persistence.ExecutionError{Op: "GetByID", ExecutionID: id, Err: err}
	}

	return &execution, nil
}

// ExecutionsByWorkflow returns a workflow's executions, newest first.
func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	executions, err := p.loadExecutions(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.WorkflowExecution, 0)

	for _, execution := range executions {
		if execution.WorkflowID == workflowID {
			matching = append(matching, execution)
		}
	}

	sort.Slice(matching, func(i, j int) bool {
		return matching[i].StartedAt.After(matching[j].StartedAt)
	})

	return matching, nil
}

// WorkflowStats aggregates execution history per non-deleted workflow.
func (p *Persistence) WorkflowStats(ctx context.Context) ([]*models.WorkflowStats, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflows, err := p.loadWorkflows(ctx, func(*models.Workflow) bool { return true })
	if err != nil {
		return nil, err
	}

	executions, err := p.loadExecutions(ctx)
	if err != nil {
		return nil, err
	}

	byWorkflow := make(map[string][]*models.WorkflowExecution)
	for _, execution := range executions {
		byWorkflow[execution.WorkflowID] = append(byWorkflow[execution.WorkflowID], execution)
	}

	stats := make([]*models.WorkflowStats, 0, len(workflows))

	for _, workflow := range workflows {
		entry := &models.WorkflowStats{
			WorkflowID: workflow.ID,
			Name:       workflow.Name,
		}

		for _, execution := range byWorkflow[workflow.ID] {
			entry.TotalExecutions++

			switch execution.Status {
			case models.ExecutionStatusCompleted:
				entry.Completed++
			case models.ExecutionStatusFailed:
				entry.Failed++
			}

			if entry.LastExecutedAt == nil || execution.StartedAt.After(*entry.LastExecutedAt) {
				startedAt := execution.StartedAt
				entry.LastExecutedAt = &startedAt
			}
		}

		if entry.TotalExecutions > 0 {
			entry.SuccessRate = float64(entry.Completed) / float64(entry.TotalExecutions)
		}

		stats = append(stats, entry)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Name < stats[j].Name
	})

	return stats, nil
}

func (p *Persistence) loadExecutions(_ context.Context) ([]*models.WorkflowExecution, error) {
	ids, err := p.ids(executionsDir)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.WorkflowExecution, 0, len(ids))

	for _, id := range ids {
		var execution models.WorkflowExecution

		err := p.readJSON(executionsDir, id, &execution)
		if err != nil {
			return nil, &persistence.ExecutionError{Op: "List", ExecutionID: id, Err: err}
		}

		executions = append(executions, &execution)
	}

	return executions, nil
}
