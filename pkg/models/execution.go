package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
// Transitions: pending -> running -> (completed | failed).
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ActionResultStatus is the outcome of a single action within an execution.
type ActionResultStatus string

const (
	ActionResultStatusCompleted ActionResultStatus = "completed"
	ActionResultStatusFailed    ActionResultStatus = "failed"
)

// ActionResult records the outcome of one action. The execution's result list
// mirrors the workflow's action list in order, one entry per declared action.
type ActionResult struct {
	Index       int                `json:"index"`
	Type        string             `json:"type"`
	Status      ActionResultStatus `json:"status"`
	Output      any                `json:"output,omitempty"`
	Error       string             `json:"error,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
}

// WorkflowExecution is one concrete run of a workflow against a trigger
// payload. Mutated while actions run, immutable once completed or failed.
type WorkflowExecution struct {
	ID            string          `json:"id"`
	WorkflowID    string          `json:"workflow_id"`
	TriggerData   map[string]any  `json:"trigger_data,omitempty"`
	Context       map[string]any  `json:"context,omitempty"`
	Status        ExecutionStatus `json:"status"`
	Error         string          `json:"error,omitempty"`
	ActionResults []ActionResult  `json:"action_results"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// Finished reports whether the execution reached a terminal status.
func (e *WorkflowExecution) Finished() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}

// Skipped reports whether the run completed without running any action, which
// only happens when the workflow's condition gate evaluated false. Active
// workflows always carry at least one action.
func (e *WorkflowExecution) Skipped() bool {
	return e.Status == ExecutionStatusCompleted && len(e.ActionResults) == 0
}
