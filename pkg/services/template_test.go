package services_test

import (
	"testing"

	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
	"github.com/mbarbosa/flowgate/pkg/persistence/file"
	"github.com/mbarbosa/flowgate/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTemplateService(t *testing.T) (*services.Template, *file.Persistence) {
	t.Helper()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	svc, err := services.NewTemplate(p)
	require.NoError(t, err)

	return svc, p
}

func validTemplateRequest() services.CreateTemplateRequest {
	return services.CreateTemplateRequest{
		Name:     "Lead follow-up",
		Category: "sales",
		TemplateData: map[string]any{
			"name":         "Lead follow-up",
			"description":  "Creates a follow-up task",
			"trigger_type": "event",
			"trigger_config": map[string]any{
				"event_name": "contact.created",
			},
			"actions": []any{
				map[string]any{"type": "create_task", "config": map[string]any{"title": "Call {{trigger_data.name}}"}},
			},
			"priority": 2,
		},
		IsPublic: true,
	}
}

func TestTemplateCreate_Valid(t *testing.T) {
	svc, p := newTemplateService(t)

	template, err := svc.Create(t.Context(), validTemplateRequest())
	require.NoError(t, err)
	require.NotNil(t, template)
	assert.NotEmpty(t, template.ID)

	stored, err := p.TemplateByID(t.Context(), template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lead follow-up", stored.Name)
}

func TestTemplateCreate_MissingName(t *testing.T) {
	svc, _ := newTemplateService(t)

	req := validTemplateRequest()
	req.Name = ""

	_, err := svc.Create(t.Context(), req)
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}

func TestTemplateCreate_SchemaRejectsBadTriggerType(t *testing.T) {
	svc, p := newTemplateService(t)

	req := validTemplateRequest()
	req.TemplateData["trigger_type"] = "bogus"

	_, err := svc.Create(t.Context(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrInvalidTemplateData)

	all, err := p.Templates(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTemplateCreate_SchemaRequiresName(t *testing.T) {
	svc, _ := newTemplateService(t)

	req := validTemplateRequest()
	delete(req.TemplateData, "name")

	_, err := svc.Create(t.Context(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrInvalidTemplateData)
}

func TestTemplateCreate_NilData(t *testing.T) {
	svc, _ := newTemplateService(t)

	req := validTemplateRequest()
	req.TemplateData = nil

	_, err := svc.Create(t.Context(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrInvalidTemplateData)
}

func TestInstantiate_ClonesInactiveWorkflow(t *testing.T) {
	svc, p := newTemplateService(t)

	template, err := svc.Create(t.Context(), validTemplateRequest())
	require.NoError(t, err)

	workflow, err := svc.Instantiate(t.Context(), template.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, workflow)

	assert.NotEmpty(t, workflow.ID)
	assert.NotEqual(t, template.ID, workflow.ID)
	assert.False(t, workflow.IsActive)
	assert.Equal(t, "user-1", workflow.CreatedBy)
	assert.Equal(t, "Lead follow-up", workflow.Name)
	assert.Equal(t, models.TriggerTypeEvent, workflow.TriggerType)
	require.Len(t, workflow.Actions, 1)
	assert.Equal(t, models.ActionTypeCreateTask, workflow.Actions[0].Type)

	stored, err := p.WorkflowByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestInstantiate_TemplateNotFound(t *testing.T) {
	svc, _ := newTemplateService(t)

	_, err := svc.Instantiate(t.Context(), "missing", "user-1")
	require.Error(t, err)
	assert.True(t, persistence.IsTemplateNotFound(err))
}
