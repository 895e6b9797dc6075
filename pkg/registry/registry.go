// Package registry maps action types to their factories. The set of factories
// is closed: everything is registered at boot, and an unrecognized type is an
// error the executor records per-action rather than a silent no-op.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mbarbosa/flowgate/pkg/protocol"
)

// ErrUnsupportedAction indicates an action type with no registered factory.
var ErrUnsupportedAction = errors.New("unsupported action type")

type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger,
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

// CreateAction builds an action of the given type from its raw configuration.
// Configuration parsing failures surface as the factory's error; an unknown
// type wraps ErrUnsupportedAction.
func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type %q not registered: %w", actionType, ErrUnsupportedAction)
	}

	return factory.Create(config)
}

// ActionTypes returns the registered action types, sorted for stable output.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	sort.Strings(types)

	return types
}

// HealthCheck reports whether the registry is usable.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.actionFactories) == 0 {
		return "No action factories registered", false
	}

	return fmt.Sprintf("%d action factories registered", len(r.actionFactories)), true
}
