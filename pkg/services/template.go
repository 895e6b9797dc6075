package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/persistence"
	"github.com/xeipuuv/gojsonschema"
)

// ErrTemplateNotFound is returned when a workflow template is not found.
var ErrTemplateNotFound = persistence.ErrTemplateNotFound

// templateDataSchema constrains the workflow shape a template may carry.
// Instantiated workflows still pass full service validation, so the schema
// only guards structure, not business rules.
const templateDataSchema = `{
	"type": "object",
	"required": ["name", "trigger_type"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"trigger_type": {"type": "string", "enum": ["time", "event", "condition", "manual"]},
		"trigger_config": {"type": "object"},
		"conditions": {"type": "object"},
		"actions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["type"],
				"properties": {
					"type": {"type": "string", "minLength": 1},
					"config": {"type": "object"}
				}
			}
		},
		"priority": {"type": "integer"}
	}
}`

type Template struct {
	persistence persistence.Persistence
	schema      *gojsonschema.Schema
}

// NewTemplate creates a new template service.
func NewTemplate(persistence persistence.Persistence) (*Template, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(templateDataSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile template data schema: %w", err)
	}

	return &Template{persistence: persistence, schema: schema}, nil
}

// CreateTemplateRequest carries the fields a client may set on a new template.
type CreateTemplateRequest struct {
	Name         string
	Category     string
	TemplateData map[string]any
	IsPublic     bool
	CreatedBy    string
}

// Create validates and persists a new workflow template. TemplateData must
// satisfy the template schema.
func (t *Template) Create(ctx context.Context, req CreateTemplateRequest) (*models.WorkflowTemplate, error) {
	if req.Name == "" {
		return nil, NewValidationError("Create", "NAME_REQUIRED", "template name is required", ErrWorkflowNameRequired)
	}

	if err := t.validateTemplateData(req.TemplateData); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	template := &models.WorkflowTemplate{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Category:     req.Category,
		TemplateData: req.TemplateData,
		IsPublic:     req.IsPublic,
		CreatedBy:    req.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := t.persistence.SaveTemplate(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	return template, nil
}

// List returns all workflow templates.
func (t *Template) List(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	templates, err := t.persistence.Templates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, nil
}

// FetchByID returns one template by ID.
func (t *Template) FetchByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	return t.persistence.TemplateByID(ctx, id)
}

// Instantiate clones a template into a new, inactive workflow. The caller
// activates it separately once satisfied with the clone.
func (t *Template) Instantiate(ctx context.Context, templateID, createdBy string) (*models.Workflow, error) {
	template, err := t.persistence.TemplateByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if err := t.validateTemplateData(template.TemplateData); err != nil {
		return nil, err
	}

	workflow, err := workflowFromTemplateData(template.TemplateData)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow.ID = uuid.NewString()
	workflow.IsActive = false
	workflow.CreatedBy = createdBy
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := t.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save instantiated workflow: %w", err)
	}

	return workflow, nil
}

func (t *Template) validateTemplateData(data map[string]any) error {
	if data == nil {
		return NewValidationError("validateTemplateData", "TEMPLATE_DATA_REQUIRED",
			"template data is required", ErrInvalidTemplateData)
	}

	result, err := t.schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate template data: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return NewValidationError("validateTemplateData", "INVALID_TEMPLATE_DATA",
			strings.Join(details, "; "), ErrInvalidTemplateData)
	}

	return nil
}

// workflowFromTemplateData round-trips the untyped template body through JSON
// into a typed workflow.
func workflowFromTemplateData(data map[string]any) (*models.Workflow, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode template data: %w", err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal(raw, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode template data: %w", err)
	}

	return &workflow, nil
}
