package file_test

import (
	"testing"
	"time"

	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
	"github.com/mbarbosa/flowgate/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPersistence(t *testing.T) *file.Persistence {
	t.Helper()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	return p
}

func sampleWorkflow(id string, triggerType models.TriggerType, priority int) *models.Workflow {
	return &models.Workflow{
		ID:          id,
		Name:        "Workflow " + id,
		TriggerType: triggerType,
		Actions:     []models.ActionItem{{Type: models.ActionTypeCreateTask, Config: map[string]any{"title": "t"}}},
		Priority:    priority,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func TestWorkflowRoundTrip(t *testing.T) {
	p := newPersistence(t)

	workflow := sampleWorkflow("wf-1", models.TriggerTypeManual, 0)
	require.NoError(t, p.SaveWorkflow(t.Context(), workflow))

	loaded, err := p.WorkflowByID(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Equal(t, models.TriggerTypeManual, loaded.TriggerType)

	all, err := p.Workflows(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWorkflowByID_NotFound(t *testing.T) {
	p := newPersistence(t)

	_, err := p.WorkflowByID(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestDeleteWorkflow_SoftDelete(t *testing.T) {
	p := newPersistence(t)

	require.NoError(t, p.SaveWorkflow(t.Context(), sampleWorkflow("wf-1", models.TriggerTypeManual, 0)))
	require.NoError(t, p.DeleteWorkflow(t.Context(), "wf-1"))

	_, err := p.WorkflowByID(t.Context(), "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	all, err := p.Workflows(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestActiveWorkflowsByTrigger_FiltersAndOrders(t *testing.T) {
	p := newPersistence(t)

	low := sampleWorkflow("wf-low", models.TriggerTypeEvent, 1)
	high := sampleWorkflow("wf-high", models.TriggerTypeEvent, 10)
	other := sampleWorkflow("wf-other", models.TriggerTypeManual, 5)
	inactive := sampleWorkflow("wf-inactive", models.TriggerTypeEvent, 99)
	inactive.IsActive = false

	for _, workflow := range []*models.Workflow{low, high, other, inactive} {
		require.NoError(t, p.SaveWorkflow(t.Context(), workflow))
	}

	matching, err := p.ActiveWorkflowsByTrigger(t.Context(), models.TriggerTypeEvent)
	require.NoError(t, err)
	require.Len(t, matching, 2)
	assert.Equal(t, "wf-high", matching[0].ID)
	assert.Equal(t, "wf-low", matching[1].ID)
}

func TestSaveExecution_FinishedIsImmutable(t *testing.T) {
	p := newPersistence(t)

	execution := &models.WorkflowExecution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, p.SaveExecution(t.Context(), execution))

	completedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &completedAt
	require.NoError(t, p.SaveExecution(t.Context(), execution))

	execution.Status = models.ExecutionStatusFailed
	err := p.SaveExecution(t.Context(), execution)
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrExecutionFinished)
}

func TestWorkflowStats(t *testing.T) {
	p := newPersistence(t)

	require.NoError(t, p.SaveWorkflow(t.Context(), sampleWorkflow("wf-1", models.TriggerTypeManual, 0)))

	statuses := []models.ExecutionStatus{
		models.ExecutionStatusCompleted,
		models.ExecutionStatusCompleted,
		models.ExecutionStatusFailed,
	}

	for i, status := range statuses {
		execution := &models.WorkflowExecution{
			ID:         "exec-" + string(rune('a'+i)),
			WorkflowID: "wf-1",
			Status:     status,
			StartedAt:  time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, p.SaveExecution(t.Context(), execution))
	}

	stats, err := p.WorkflowStats(t.Context())
	require.NoError(t, err)
	require.Len(t, stats, 1)

	assert.Equal(t, 3, stats[0].TotalExecutions)
	assert.Equal(t, 2, stats[0].Completed)
	assert.Equal(t, 1, stats[0].Failed)
	assert.InDelta(t, 2.0/3.0, stats[0].SuccessRate, 0.001)
	assert.NotNil(t, stats[0].LastExecutedAt)
}

func TestTemplateRoundTrip(t *testing.T) {
	p := newPersistence(t)

	template := &models.WorkflowTemplate{
		ID:       "tpl-1",
		Name:     "Lead follow-up",
		Category: "sales",
		TemplateData: map[string]any{
			"name":         "Lead follow-up",
			"trigger_type": "manual",
			"actions":      []any{map[string]any{"type": "create_task", "config": map[string]any{"title": "Call"}}},
		},
	}
	require.NoError(t, p.SaveTemplate(t.Context(), template))

	loaded, err := p.TemplateByID(t.Context(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "Lead follow-up", loaded.Name)

	all, err := p.Templates(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = p.TemplateByID(t.Context(), "missing")
	assert.True(t, persistence.IsTemplateNotFound(err))
}
