package protocol

import "context"

// EmailMessage is the payload handed to the mail collaborator.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer sends email on behalf of send_email actions. The engine treats a send
// as an opaque synchronous operation.
type Mailer interface {
	Send(ctx context.Context, message EmailMessage) error
}

// Task is the payload handed to the task collaborator.
type Task struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
}

// TaskCreator creates CRM tasks on behalf of create_task actions and returns
// the created task's identifier.
type TaskCreator interface {
	CreateTask(ctx context.Context, task Task) (string, error)
}

// EntityUpdate is one field mutation against a CRM entity.
type EntityUpdate struct {
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`
	Field    string `json:"field"`
	Value    any    `json:"value"`
}

// EntityStore mutates CRM records on behalf of update_data actions. The store
// owns its own write isolation; the engine only reports success or failure.
type EntityStore interface {
	UpdateEntity(ctx context.Context, update EntityUpdate) error
}
