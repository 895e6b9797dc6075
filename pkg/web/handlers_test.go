package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/mbarbosa/flowgate/pkg/actions/createtask"
	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence/file"
	"github.com/mbarbosa/flowgate/pkg/protocol"
	"github.com/mbarbosa/flowgate/pkg/registry"
	"github.com/mbarbosa/flowgate/pkg/services"
	"github.com/mbarbosa/flowgate/pkg/web"
	"github.com/mbarbosa/flowgate/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTaskCreator captures created tasks so tests can assert on the
// collaborator side effect.
type recordingTaskCreator struct {
	mu    sync.Mutex
	tasks []protocol.Task
}

func (r *recordingTaskCreator) CreateTask(_ context.Context, task protocol.Task) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = append(r.tasks, task)

	return "task-1", nil
}

func (r *recordingTaskCreator) created() []protocol.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]protocol.Task(nil), r.tasks...)
}

func setupTestApp(t *testing.T) (*fiber.App, *recordingTaskCreator) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	tasks := &recordingTaskCreator{}

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(createtask.NewFactory(tasks))

	executor := workflow.NewExecutor(logger, p, reg, nil)
	processor := workflow.NewTriggerProcessor(logger, p, executor, nil)

	workflowService := services.NewWorkflow(p)
	templateService, err := services.NewTemplate(p)
	require.NoError(t, err)

	validate := validator.New(validator.WithRequiredStructEnabled())
	handlers := web.NewAPIHandlers(workflowService, templateService, executor, processor, validate, reg, p)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	app.Get("/executions/:id", handlers.GetExecution)
	app.Get("/stats", handlers.GetStats)
	app.Post("/triggers/:type/process", handlers.ProcessTriggers)

	tpl := app.Group("/templates")
	tpl.Get("/", handlers.GetTemplates)
	tpl.Post("/", handlers.CreateTemplate)
	tpl.Post("/:id/instantiate", handlers.InstantiateTemplate)

	app.Get("/health", handlers.HealthCheck)

	return app, tasks
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body []byte

	if payload != nil {
		if str, ok := payload.(string); ok {
			body = []byte(str)
		} else {
			var err error

			body, err = json.Marshal(payload)
			require.NoError(t, err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func createWorkflow(t *testing.T, app *fiber.App, req web.CreateWorkflowRequest) models.Workflow {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	return created
}

func followUpWorkflow() web.CreateWorkflowRequest {
	return web.CreateWorkflowRequest{
		Name:        "Lead follow-up",
		TriggerType: models.TriggerTypeEvent,
		Conditions:  &models.ConditionNode{Field: "status", Operator: "==", Value: "new"},
		Actions: []models.ActionItem{
			{Type: models.ActionTypeCreateTask, Config: map[string]any{"title": "Follow up"}},
		},
		IsActive: true,
	}
}

func TestCreateWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	created := createWorkflow(t, app, followUpWorkflow())
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Lead follow-up", created.Name)
	assert.True(t, created.IsActive)
}

func TestCreateWorkflow_MissingName(t *testing.T) {
	app, _ := setupTestApp(t)

	req := followUpWorkflow()
	req.Name = ""

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateWorkflow_InvalidJSON(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows", "not-json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflow_NotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateWorkflow_Partial(t *testing.T) {
	app, _ := setupTestApp(t)

	created := createWorkflow(t, app, followUpWorkflow())

	resp, body := doJSON(t, app, http.MethodPatch, "/workflows/"+created.ID, map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var updated models.Workflow
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, created.TriggerType, updated.TriggerType)
}

func TestDeleteWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	created := createWorkflow(t, app, followUpWorkflow())

	resp, _ := doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecuteWorkflow_CreatesTask(t *testing.T) {
	app, tasks := setupTestApp(t)

	created := createWorkflow(t, app, followUpWorkflow())

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", web.ExecuteWorkflowRequest{
		TriggerData: map[string]any{"status": "new", "name": "Ada"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var execution models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.ActionResults, 1)

	// Exactly one task was created through the collaborator.
	createdTasks := tasks.created()
	require.Len(t, createdTasks, 1)
	assert.Equal(t, "Follow up", createdTasks[0].Title)

	// The execution is retrievable afterwards.
	resp, body = doJSON(t, app, http.MethodGet, "/executions/"+execution.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestExecuteWorkflow_ConditionsNotMetReportsSkipped(t *testing.T) {
	app, tasks := setupTestApp(t)

	created := createWorkflow(t, app, followUpWorkflow())

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", web.ExecuteWorkflowRequest{
		TriggerData: map[string]any{"status": "stale"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result struct {
		Skipped   bool                     `json:"skipped"`
		Execution models.WorkflowExecution `json:"execution"`
	}

	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.Skipped)
	assert.Equal(t, models.ExecutionStatusCompleted, result.Execution.Status)
	assert.Empty(t, result.Execution.ActionResults)
	assert.Empty(t, tasks.created())

	// The skipped run shows up in the execution history.
	resp, body = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Executions []models.WorkflowExecution `json:"executions"`
		TotalCount int                        `json:"total_count"`
	}

	require.NoError(t, json.Unmarshal(body, &listing))
	assert.Equal(t, 1, listing.TotalCount)
}

func TestExecuteWorkflow_NotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/missing/execute", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProcessTriggers(t *testing.T) {
	app, tasks := setupTestApp(t)

	createWorkflow(t, app, followUpWorkflow())

	resp, body := doJSON(t, app, http.MethodPost, "/triggers/event/process", web.ProcessTriggersRequest{
		TriggerData: map[string]any{"status": "new"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var batch models.TriggerBatchResult
	require.NoError(t, json.Unmarshal(body, &batch))
	assert.Equal(t, 1, batch.TotalTriggers)
	assert.Equal(t, 1, batch.TriggersProcessed)
	assert.Len(t, tasks.created(), 1)
}

func TestProcessTriggers_InvalidType(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/triggers/bogus/process", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWorkflowExecutionsListing(t *testing.T) {
	app, _ := setupTestApp(t)

	created := createWorkflow(t, app, followUpWorkflow())

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", web.ExecuteWorkflowRequest{
		TriggerData: map[string]any{"status": "new"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Executions []models.WorkflowExecution `json:"executions"`
		TotalCount int                        `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &listing))
	assert.Equal(t, 1, listing.TotalCount)
}

func TestStats(t *testing.T) {
	app, _ := setupTestApp(t)

	created := createWorkflow(t, app, followUpWorkflow())

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/execute", web.ExecuteWorkflowRequest{
		TriggerData: map[string]any{"status": "new"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = doJSON(t, app, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Stats []models.WorkflowStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing.Stats, 1)
	assert.Equal(t, 1, listing.Stats[0].TotalExecutions)
	assert.Equal(t, 1, listing.Stats[0].Completed)
}

func TestTemplates_CreateAndInstantiate(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/templates", web.CreateTemplateRequest{
		Name:     "Lead follow-up",
		Category: "sales",
		TemplateData: map[string]any{
			"name":         "Lead follow-up",
			"trigger_type": "event",
			"actions": []any{
				map[string]any{"type": "create_task", "config": map[string]any{"title": "Call"}},
			},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var template models.WorkflowTemplate
	require.NoError(t, json.Unmarshal(body, &template))

	resp, body = doJSON(t, app, http.MethodPost, "/templates/"+template.ID+"/instantiate", web.InstantiateTemplateRequest{CreatedBy: "user-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var wf models.Workflow
	require.NoError(t, json.Unmarshal(body, &wf))
	assert.False(t, wf.IsActive)
	assert.Equal(t, "user-1", wf.CreatedBy)
}

func TestTemplates_InvalidTemplateData(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/templates", web.CreateTemplateRequest{
		Name:         "Broken",
		TemplateData: map[string]any{"trigger_type": "bogus"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}
