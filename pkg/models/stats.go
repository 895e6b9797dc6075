package models

import "time"

// WorkflowStats is a read-only aggregate over the persisted execution history
// of one workflow.
type WorkflowStats struct {
	WorkflowID      string     `json:"workflow_id"`
	Name            string     `json:"name"`
	TotalExecutions int        `json:"total_executions"`
	Completed       int        `json:"completed"`
	Failed          int        `json:"failed"`
	SuccessRate     float64    `json:"success_rate"`
	LastExecutedAt  *time.Time `json:"last_executed_at,omitempty"`
}

// TriggerResult summarizes one workflow's outcome within a trigger batch.
type TriggerResult struct {
	WorkflowID   string          `json:"workflow_id"`
	WorkflowName string          `json:"workflow_name"`
	ExecutionID  string          `json:"execution_id,omitempty"`
	Status       ExecutionStatus `json:"status,omitempty"`
	Skipped      bool            `json:"skipped,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// TriggerBatchResult aggregates a ProcessTriggers pass over all active
// workflows of one trigger type.
type TriggerBatchResult struct {
	TriggerType       TriggerType     `json:"trigger_type"`
	TotalTriggers     int             `json:"total_triggers"`
	TriggersProcessed int             `json:"triggers_processed"`
	Results           []TriggerResult `json:"results"`
}
