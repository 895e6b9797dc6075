// Package protocol defines the contracts between the workflow engine and its
// pluggable actions and side-effect collaborators.
package protocol

import (
	"context"
	"log/slog"

	"github.com/mbarbosa/flowgate/pkg/models"
)

// Action is one executable step of a workflow. Validate runs before Execute;
// when it fails, Execute is never invoked (fail-fast, no partial side effect).
type Action interface {
	Validate() error
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFactory builds an action of one kind from its raw configuration,
// parsing the untyped map into the kind's typed config.
type ActionFactory interface {
	// ID returns the action type this factory handles (e.g. "send_email").
	ID() string

	Create(config map[string]any) (Action, error)
}
