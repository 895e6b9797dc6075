// Package updatedata provides the update_data workflow action, mutating one
// field of a CRM entity through the protocol.EntityStore collaborator.
package updatedata

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
	// ErrEntityRequired is returned when the 'entity' config is missing.
	ErrEntityRequired = errors.New("update_data action requires 'entity'")
	// ErrEntityIDRequired is returned when the 'entity_id' config is missing.
	ErrEntityIDRequired = errors.New("update_data action requires 'entity_id'")
	// ErrFieldRequired is returned when the 'field' config is missing.
	ErrFieldRequired = errors.New("update_data action requires 'field'")
	// ErrStoreNotConfigured is returned when no entity store is wired.
	ErrStoreNotConfigured = errors.New("entity store collaborator not configured")
)

// Config is the typed configuration of an update_data action. EntityID and
// Value may contain template expressions rendered against the execution.
type Config struct {
	Entity   string
	EntityID string
	Field    string
	Value    any
}

type Factory struct {
	store protocol.EntityStore
}

func NewFactory(store protocol.EntityStore) *Factory {
	return &Factory{store: store}
}

func (*Factory) ID() string {
	return models.ActionTypeUpdateData
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	entity, _ := config["entity"].(string)
	entityID, _ := config["entity_id"].(string)
	field, _ := config["field"].(string)

	return &Action{
		Config: Config{
			Entity:   entity,
			EntityID: entityID,
			Field:    field,
			Value:    config["value"],
		},
		store: f.store,
	}, nil
}

// Action applies one field mutation per execution.
type Action struct {
	Config Config

	store protocol.EntityStore
}

func (a *Action) Validate() error {
	if a.store == nil {
		return ErrStoreNotConfigured
	}

	if a.Config.Entity == "" {
		return ErrEntityRequired
	}

	if a.Config.EntityID == "" {
		return ErrEntityIDRequired
	}

	if a.Config.Field == "" {
		return ErrFieldRequired
	}

	return nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", models.ActionTypeUpdateData)

	entityID, err := template.RenderString(a.Config.EntityID, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render entity_id template: %w", err)
	}

	value := a.Config.Value
	if valueTemplate, ok := value.(string); ok {
		value, err = template.RenderWithContext(valueTemplate, &executionCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render value template: %w", err)
		}
	}

	update := protocol.EntityUpdate{
		Entity:   a.Config.Entity,
		EntityID: entityID,
		Field:    a.Config.Field,
		Value:    value,
	}

	err = a.store.UpdateEntity(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s.%s for %s: %w", a.Config.Entity, a.Config.Field, entityID, err)
	}

	logger.InfoContext(ctx, "Entity updated",
		"entity", a.Config.Entity,
		"entity_id", entityID,
		"field", a.Config.Field,
	)

	return map[string]any{
		"entity":    a.Config.Entity,
		"entity_id": entityID,
		"field":     a.Config.Field,
	}, nil
}
