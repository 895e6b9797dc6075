// Package createtask provides the create_task workflow action, delegating
// task creation to the protocol.TaskCreator collaborator.
package createtask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/protocol"
	"github.com/mbarbosa/flowgate/pkg/template"
)

var (
	// ErrTitleRequired is returned when the 'title' config is missing.
	ErrTitleRequired = errors.New("create_task action requires 'title'")
	// ErrTaskCreatorNotConfigured is returned when no task collaborator is wired.
	ErrTaskCreatorNotConfigured = errors.New("task collaborator not configured")
)

// Config is the typed configuration of a create_task action.
type Config struct {
	Title       string
	Description string
	Assignee    string
}

type Factory struct {
	tasks protocol.TaskCreator
}

func NewFactory(tasks protocol.TaskCreator) *Factory {
	return &Factory{tasks: tasks}
}

func (*Factory) ID() string {
	return models.ActionTypeCreateTask
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	title, _ := config["title"].(string)
	description, _ := config["description"].(string)
	assignee, _ := config["assignee"].(string)

	return &Action{
		Config: Config{Title: title, Description: description, Assignee: assignee},
		tasks:  f.tasks,
	}, nil
}

// Action creates one CRM task per execution.
type Action struct {
	Config Config

	tasks protocol.TaskCreator
}

func (a *Action) Validate() error {
	if a.tasks == nil {
		return ErrTaskCreatorNotConfigured
	}

	if a.Config.Title == "" {
		return ErrTitleRequired
	}

	return nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", models.ActionTypeCreateTask)

	title, err := template.RenderString(a.Config.Title, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render title template: %w", err)
	}

	description, err := template.RenderString(a.Config.Description, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render description template: %w", err)
	}

	taskID, err := a.tasks.CreateTask(ctx, protocol.Task{
		Title:       title,
		Description: description,
		Assignee:    a.Config.Assignee,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task %q: %w", title, err)
	}

	logger.InfoContext(ctx, "Task created", "task_id", taskID, "title", title)

	return map[string]any{"task_id": taskID, "title": title}, nil
}
