// Package web provides the REST API handlers for workflow management and
// trigger dispatch.
package web

import "github.com/mbarbosa/flowgate/pkg/models"

// CreateWorkflowRequest is the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name          string                `json:"name"           validate:"required,min=1"`
	Description   string                `json:"description"`
	TriggerType   models.TriggerType    `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any        `json:"trigger_config,omitempty"`
	Conditions    *models.ConditionNode `json:"conditions,omitempty"`
	Actions       []models.ActionItem   `json:"actions"`
	Priority      int                   `json:"priority"`
	IsActive      bool                  `json:"is_active"`
	CreatedBy     string                `json:"created_by"`
}

// UpdateWorkflowRequest is the request body for updating a workflow. All
// fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name          *string               `json:"name,omitempty"        validate:"omitempty,min=1"`
	Description   *string               `json:"description,omitempty"`
	TriggerType   *models.TriggerType   `json:"trigger_type,omitempty"`
	TriggerConfig map[string]any        `json:"trigger_config,omitempty"`
	Conditions    *models.ConditionNode `json:"conditions,omitempty"`
	Actions       []models.ActionItem   `json:"actions,omitempty"`
	Priority      *int                  `json:"priority,omitempty"`
	IsActive      *bool                 `json:"is_active,omitempty"`
}

// ExecuteWorkflowRequest is the request body for manually executing a
// workflow.
type ExecuteWorkflowRequest struct {
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// ProcessTriggersRequest is the request body for dispatching a trigger batch.
type ProcessTriggersRequest struct {
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// CreateTemplateRequest is the request body for creating a workflow template.
type CreateTemplateRequest struct {
	Name         string         `json:"name"          validate:"required,min=1"`
	Category     string         `json:"category"`
	TemplateData map[string]any `json:"template_data" validate:"required"`
	IsPublic     bool           `json:"is_public"`
	CreatedBy    string         `json:"created_by"`
}

// InstantiateTemplateRequest is the request body for cloning a template into
// a workflow.
type InstantiateTemplateRequest struct {
	CreatedBy string `json:"created_by"`
}
