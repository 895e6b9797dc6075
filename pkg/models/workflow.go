// Package models defines the core domain models for CRM workflow automation.
package models

import "time"

// TriggerType classifies what makes a workflow eligible to run.
type TriggerType string

const (
	TriggerTypeTime      TriggerType = "time"      // Fired by the cron scheduler
	TriggerTypeEvent     TriggerType = "event"     // Fired by an external CRM event
	TriggerTypeCondition TriggerType = "condition" // Fired by periodic condition polling
	TriggerTypeManual    TriggerType = "manual"    // Fired only via the API
)

// TriggerTypes lists every recognized trigger type.
var TriggerTypes = []TriggerType{
	TriggerTypeTime,
	TriggerTypeEvent,
	TriggerTypeCondition,
	TriggerTypeManual,
}

// Valid reports whether t is one of the enumerated trigger types.
func (t TriggerType) Valid() bool {
	for _, known := range TriggerTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Workflow is an automation rule: a trigger, an optional condition tree gating
// execution, and an ordered list of actions.
//
// Priority orders execution within a trigger batch: higher values run first,
// ties break by CreatedAt ascending.
type Workflow struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"           validate:"required,min=1"`
	Description   string         `json:"description"`
	TriggerType   TriggerType    `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
	Conditions    *ConditionNode `json:"conditions,omitempty"`
	Actions       []ActionItem   `json:"actions"`
	Priority      int            `json:"priority"`
	IsActive      bool           `json:"is_active"`
	CreatedBy     string         `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty"`
}
