package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
)

const executionColumns = `id, workflow_id, trigger_data, context, status,
	error, action_results, started_at, completed_at`

// SaveExecution inserts or updates an execution record. A record that already
// reached a terminal status is immutable.
func (p *Persistence) SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerData, err := marshalJSON(execution.TriggerData)
	if err != nil {
		return &persistence.ExecutionError{Op: "Save", ExecutionID: execution.ID, Err: err}
	}

	contextData, err := marshalJSON(execution.Context)
	if err != nil {
		return &persistence.ExecutionError{Op: "Save", ExecutionID: execution.ID, Err: err}
	}

	actionResults, err := marshalJSON(execution.ActionResults)
	if err != nil {
		return &persistence.ExecutionError{Op: "Save", ExecutionID: execution.ID, Err: err}
	}

	if actionResults == nil {
		actionResults = []byte("[]")
	}

	// The conflict update is guarded so a finished record never changes.
	query := `
		INSERT INTO workflow_executions (id, workflow_id, trigger_data, context,
			status, error, action_results, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			trigger_data = EXCLUDED.trigger_data,
			context = EXCLUDED.context,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			action_results = EXCLUDED.action_results,
			completed_at = EXCLUDED.completed_at
		WHERE workflow_executions.status NOT IN ('completed', 'failed')`

	result, err := p.db.ExecContext(ctx, query,
		execution.ID, execution.WorkflowID, triggerData, contextData,
		execution.Status, execution.Error, actionResults,
		execution.StartedAt, execution.CompletedAt)
	if err != nil {
		return &persistence.ExecutionError{Op: "Save", ExecutionID: execution.ID, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.ExecutionError{Op: "Save", ExecutionID: execution.ID, Err: err}
	}

	if affected == 0 {
		return &persistence.ExecutionError{Op: "Save", ExecutionID: execution.ID, Err: persistence.ErrExecutionFinished}
	}

	return nil
}

// ExecutionByID returns an execution record by its ID.
func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE id = $1`

	execution, err := scanExecution(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.ExecutionError{Op: "GetByID", ExecutionID: id, Err: persistence.ErrExecutionNotFound}
		}

		return nil, &persistence.ExecutionError{Op: "GetByID", ExecutionID: id, Err: err}
	}

	return execution, nil
}

// ExecutionsByWorkflow returns a workflow's executions, newest first.
func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + `
		FROM workflow_executions WHERE workflow_id = $1 ORDER BY started_at DESC`

	rows, err := p.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, &persistence.ExecutionError{Op: "List", ExecutionID: "", Err: err}
	}
	defer func() { _ = rows.Close() }()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, &persistence.ExecutionError{Op: "List", ExecutionID: "", Err: err}
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, &persistence.ExecutionError{Op: "List", ExecutionID: "", Err: err}
	}

	return executions, nil
}

// WorkflowStats aggregates execution history per non-deleted workflow.
func (p *Persistence) WorkflowStats(ctx context.Context) ([]*models.WorkflowStats, error) {
	query := `
		SELECT w.id, w.name,
			COUNT(e.id),
			COUNT(e.id) FILTER (WHERE e.status = 'completed'),
			COUNT(e.id) FILTER (WHERE e.status = 'failed'),
			MAX(e.started_at)
		FROM workflows w
		LEFT JOIN workflow_executions e ON e.workflow_id = w.id
		WHERE w.deleted_at IS NULL
		GROUP BY w.id, w.name
		ORDER BY w.name ASC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &persistence.ExecutionError{Op: "Stats", ExecutionID: "", Err: err}
	}
	defer func() { _ = rows.Close() }()

	stats := make([]*models.WorkflowStats, 0)

	for rows.Next() {
		var (
			entry          models.WorkflowStats
			lastExecutedAt sql.NullTime
		)

		err := rows.Scan(&entry.WorkflowID, &entry.Name, &entry.TotalExecutions,
			&entry.Completed, &entry.Failed, &lastExecutedAt)
		if err != nil {
			return nil, &persistence.ExecutionError{Op: "Stats", ExecutionID: "", Err: err}
		}

		if lastExecutedAt.Valid {
			startedAt := lastExecutedAt.Time
			entry.LastExecutedAt = &startedAt
		}

		if entry.TotalExecutions > 0 {
			entry.SuccessRate = float64(entry.Completed) / float64(entry.TotalExecutions)
		}

		stats = append(stats, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, &persistence.ExecutionError{Op: "Stats", ExecutionID: "", Err: err}
	}

	return stats, nil
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution     models.WorkflowExecution
		triggerData   []byte
		contextData   []byte
		actionResults []byte
		completedAt   sql.NullTime
	)

	err := row.Scan(&execution.ID, &execution.WorkflowID, &triggerData,
		&contextData, &execution.Status, &execution.Error, &actionResults,
		&execution.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		finishedAt := completedAt.Time
		execution.CompletedAt = &finishedAt
	}

	if err := unmarshalJSON(triggerData, &execution.TriggerData); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(contextData, &execution.Context); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(actionResults, &execution.ActionResults); err != nil {
		return nil, err
	}

	return &execution, nil
}
