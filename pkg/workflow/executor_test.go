package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mbarbosa/flowgate/pkg/condition"
	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
	"github.com/mbarbosa/flowgate/pkg/persistence/file"
	"github.com/mbarbosa/flowgate/pkg/protocol"
	"github.com/mbarbosa/flowgate/pkg/registry"
	"github.com/mbarbosa/flowgate/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// stubAction runs a canned behavior so tests can model success, failure, and
// slow actions without real collaborators.
type stubAction struct {
	fail  bool
	sleep time.Duration
	calls *atomic.Int64
}

func (*stubAction) Validate() error { return nil }

func (a *stubAction) Execute(ctx context.Context, _ models.ExecutionContext, _ *slog.Logger) (any, error) {
	if a.calls != nil {
		a.calls.Add(1)
	}

	if a.sleep > 0 {
		select {
		case <-time.After(a.sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if a.fail {
		return nil, errBoom
	}

	return map[string]any{"ok": true}, nil
}

type stubFactory struct {
	id     string
	action *stubAction
}

func (f *stubFactory) ID() string { return f.id }

func (f *stubFactory) Create(config map[string]any) (protocol.Action, error) {
	action := *f.action
	action.fail, _ = config["fail"].(bool)

	return &action, nil
}

func newTestExecutor(t *testing.T, factories ...protocol.ActionFactory) (*workflow.Executor, persistence.Persistence) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	reg := registry.NewRegistry(logger)
	for _, factory := range factories {
		reg.RegisterAction(factory)
	}

	return workflow.NewExecutor(logger, p, reg, nil), p
}

func saveWorkflow(t *testing.T, p persistence.Persistence, wf *models.Workflow) {
	t.Helper()
	require.NoError(t, p.SaveWorkflow(t.Context(), wf))
}

func baseWorkflow(actions ...models.ActionItem) *models.Workflow {
	now := time.Now().UTC()

	return &models.Workflow{
		ID:          "wf-1",
		Name:        "Test Workflow",
		TriggerType: models.TriggerTypeManual,
		Actions:     actions,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestExecute_AllActionsSucceed(t *testing.T) {
	calls := &atomic.Int64{}
	executor, p := newTestExecutor(t, &stubFactory{id: "stub", action: &stubAction{calls: calls}})

	saveWorkflow(t, p, baseWorkflow(
		models.ActionItem{Type: "stub", Config: map[string]any{}},
		models.ActionItem{Type: "stub", Config: map[string]any{}},
	))

	execution, err := executor.Execute(t.Context(), "wf-1", map[string]any{"x": 1}, nil)
	require.NoError(t, err)
	require.NotNil(t, execution)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Len(t, execution.ActionResults, 2)
	assert.Equal(t, int64(2), calls.Load())
	require.NotNil(t, execution.CompletedAt)

	// The terminal record is persisted.
	stored, err := p.ExecutionByID(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
}

func TestExecute_FailingActionDoesNotStopOthers(t *testing.T) {
	calls := &atomic.Int64{}
	executor, p := newTestExecutor(t, &stubFactory{id: "stub", action: &stubAction{calls: calls}})

	saveWorkflow(t, p, baseWorkflow(
		models.ActionItem{Type: "stub", Config: map[string]any{}},
		models.ActionItem{Type: "stub", Config: map[string]any{"fail": true}},
		models.ActionItem{Type: "stub", Config: map[string]any{}},
	))

	execution, err := executor.Execute(t.Context(), "wf-1", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, execution)

	// All three actions ran despite the middle failure.
	assert.Equal(t, int64(3), calls.Load())
	require.Len(t, execution.ActionResults, 3)

	assert.Equal(t, models.ActionResultStatusCompleted, execution.ActionResults[0].Status)
	assert.Equal(t, models.ActionResultStatusFailed, execution.ActionResults[1].Status)
	assert.Contains(t, execution.ActionResults[1].Error, "boom")
	assert.Equal(t, models.ActionResultStatusCompleted, execution.ActionResults[2].Status)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, "1 of 3 actions failed")
}

func TestExecute_UnknownActionTypeRecordedPerAction(t *testing.T) {
	executor, p := newTestExecutor(t, &stubFactory{id: "stub", action: &stubAction{}})

	saveWorkflow(t, p, baseWorkflow(
		models.ActionItem{Type: "no_such_action", Config: map[string]any{}},
		models.ActionItem{Type: "stub", Config: map[string]any{}},
	))

	execution, err := executor.Execute(t.Context(), "wf-1", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, execution)

	require.Len(t, execution.ActionResults, 2)
	assert.Equal(t, models.ActionResultStatusFailed, execution.ActionResults[0].Status)
	assert.ErrorContains(t, errors.New(execution.ActionResults[0].Error), "unsupported action type")
	assert.Equal(t, models.ActionResultStatusCompleted, execution.ActionResults[1].Status)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
}

func TestExecute_ConditionsNotMetCompletesWithoutActions(t *testing.T) {
	calls := &atomic.Int64{}
	executor, p := newTestExecutor(t, &stubFactory{id: "stub", action: &stubAction{calls: calls}})

	wf := baseWorkflow(models.ActionItem{Type: "stub", Config: map[string]any{}})
	wf.Conditions = &models.ConditionNode{Field: "status", Operator: condition.OperatorEqual, Value: "hot"}
	saveWorkflow(t, p, wf)

	execution, err := executor.Execute(t.Context(), "wf-1", map[string]any{"status": "cold"}, nil)
	require.NoError(t, err)
	require.NotNil(t, execution)

	// The run is recorded as completed with zero action results.
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Empty(t, execution.ActionResults)
	assert.True(t, execution.Skipped())
	require.NotNil(t, execution.CompletedAt)
	assert.Equal(t, int64(0), calls.Load())

	executions, err := p.ExecutionsByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusCompleted, executions[0].Status)
	assert.Empty(t, executions[0].ActionResults)
}

func TestExecute_ConditionErrorRecordsFailedExecution(t *testing.T) {
	calls := &atomic.Int64{}
	executor, p := newTestExecutor(t, &stubFactory{id: "stub", action: &stubAction{calls: calls}})

	wf := baseWorkflow(models.ActionItem{Type: "stub", Config: map[string]any{}})
	wf.Conditions = &models.ConditionNode{Field: "status", Operator: "~=", Value: "hot"}
	saveWorkflow(t, p, wf)

	execution, err := executor.Execute(t.Context(), "wf-1", map[string]any{"status": "hot"}, nil)
	require.Error(t, err)
	require.NotNil(t, execution)

	// The failure is recorded and no action ran.
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, "condition evaluation failed")
	assert.Empty(t, execution.ActionResults)
	assert.Equal(t, int64(0), calls.Load())

	executions, perr := p.ExecutionsByWorkflow(t.Context(), "wf-1")
	require.NoError(t, perr)
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusFailed, executions[0].Status)
}

func TestExecute_ConditionsMetRunsActions(t *testing.T) {
	calls := &atomic.Int64{}
	executor, p := newTestExecutor(t, &stubFactory{id: "stub", action: &stubAction{calls: calls}})

	wf := baseWorkflow(models.ActionItem{Type: "stub", Config: map[string]any{}})
	wf.Conditions = &models.ConditionNode{Field: "status", Operator: condition.OperatorEqual, Value: "hot"}
	saveWorkflow(t, p, wf)

	execution, err := executor.Execute(t.Context(), "wf-1", map[string]any{"status": "hot"}, nil)
	require.NoError(t, err)
	require.NotNil(t, execution)
	assert.Equal(t, int64(1), calls.Load())
}

func TestExecute_WorkflowNotFound(t *testing.T) {
	executor, _ := newTestExecutor(t)

	_, err := executor.Execute(t.Context(), "missing", nil, nil)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestExecute_InactiveWorkflowNotExecutable(t *testing.T) {
	executor, p := newTestExecutor(t, &stubFactory{id: "stub", action: &stubAction{}})

	wf := baseWorkflow(models.ActionItem{Type: "stub", Config: map[string]any{}})
	wf.IsActive = false
	saveWorkflow(t, p, wf)

	_, err := executor.Execute(t.Context(), "wf-1", nil, nil)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestExecute_SlowActionTimesOut(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(&stubFactory{id: "stub", action: &stubAction{sleep: time.Second}})

	executor := workflow.NewExecutor(logger, p, reg, nil, workflow.WithActionTimeout(10*time.Millisecond))

	saveWorkflow(t, p, baseWorkflow(models.ActionItem{Type: "stub", Config: map[string]any{}}))

	execution, err := executor.Execute(t.Context(), "wf-1", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, execution)

	require.Len(t, execution.ActionResults, 1)
	assert.Equal(t, models.ActionResultStatusFailed, execution.ActionResults[0].Status)
	assert.Contains(t, execution.ActionResults[0].Error, context.DeadlineExceeded.Error())
}
