// Package sendemail provides the send_email workflow action. The mechanics of
// delivery belong to the protocol.Mailer collaborator; the action owns config
// parsing, validation, and templating.
package sendemail

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
	// ErrRecipientRequired is returned when the 'to' config is missing.
	ErrRecipientRequired = errors.New("send_email action requires 'to'")
	// ErrSubjectRequired is returned when the 'subject' config is missing.
	ErrSubjectRequired = errors.New("send_email action requires 'subject'")
	// ErrMailerNotConfigured is returned when no mail collaborator is wired.
	ErrMailerNotConfigured = errors.New("mail collaborator not configured")
)

// Config is the typed configuration of a send_email action. To, Subject, and
// Body may contain template expressions rendered against the execution.
type Config struct {
	To      string
	Subject string
	Body    string
}

type Factory struct {
	mailer protocol.Mailer
}

func NewFactory(mailer protocol.Mailer) *Factory {
	return &Factory{mailer: mailer}
}

func (*Factory) ID() string {
	return models.ActionTypeSendEmail
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	to, _ := config["to"].(string)
	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)

	return &Action{
		Config: Config{To: to, Subject: subject, Body: body},
		mailer: f.mailer,
	}, nil
}

// Action sends one email per execution.
type Action struct {
	Config Config

	mailer protocol.Mailer
}

func (a *Action) Validate() error {
	if a.mailer == nil {
		return ErrMailerNotConfigured
	}

	if a.Config.To == "" {
		return ErrRecipientRequired
	}

	if a.Config.Subject == "" {
		return ErrSubjectRequired
	}

	return nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", models.ActionTypeSendEmail)

	to, err := template.RenderString(a.Config.To, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render recipient template: %w", err)
	}

	subject, err := template.RenderString(a.Config.Subject, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject template: %w", err)
	}

	body, err := template.RenderString(a.Config.Body, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render body template: %w", err)
	}

	err = a.mailer.Send(ctx, protocol.EmailMessage{To: to, Subject: subject, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	logger.InfoContext(ctx, "Email sent", "to", to, "subject", subject)

	return map[string]any{"to": to, "subject": subject}, nil
}
