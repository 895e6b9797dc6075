package models

import "time"

// WorkflowTemplate is a cloneable blueprint of a workflow shape. Templates are
// never executed directly; Instantiate clones TemplateData into a real,
// initially inactive workflow.
type WorkflowTemplate struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"          validate:"required,min=1"`
	Category     string         `json:"category"`
	TemplateData map[string]any `json:"template_data" validate:"required"`
	IsPublic     bool           `json:"is_public"`
	CreatedBy    string         `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
