// Package logging provides collaborator implementations that only log their
// payloads. Used for local development when no CRM backend is configured.
package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mbarbosa/flowgate/pkg/protocol"
)

// Collaborator implements protocol.Mailer, protocol.TaskCreator, and
// protocol.EntityStore by logging each request and succeeding.
type Collaborator struct {
	logger *slog.Logger
}

func NewCollaborator(logger *slog.Logger) *Collaborator {
	return &Collaborator{logger: logger.With("module", "logging_collaborator")}
}

func (c *Collaborator) Send(ctx context.Context, message protocol.EmailMessage) error {
	c.logger.InfoContext(ctx, "Email (not delivered, no CRM backend configured)",
		"to", message.To,
		"subject", message.Subject)

	return nil
}

func (c *Collaborator) CreateTask(ctx context.Context, task protocol.Task) (string, error) {
	taskID := uuid.NewString()

	c.logger.InfoContext(ctx, "Task (not created, no CRM backend configured)",
		"task_id", taskID,
		"title", task.Title,
		"assignee", task.Assignee)

	return taskID, nil
}

func (c *Collaborator) UpdateEntity(ctx context.Context, update protocol.EntityUpdate) error {
	c.logger.InfoContext(ctx, "Entity update (not applied, no CRM backend configured)",
		"entity", update.Entity,
		"entity_id", update.EntityID,
		"field", update.Field)

	return nil
}
