package cmd

import (
	"log/slog"

	"github.com/mbarbosa/flowgate/pkg/actions/createtask"
	"github.com/mbarbosa/flowgate/pkg/actions/sendemail"
	"github.com/mbarbosa/flowgate/pkg/actions/updatedata"
	"github.com/mbarbosa/flowgate/pkg/actions/webhook"
	"github.com/mbarbosa/flowgate/pkg/collaborators/crmapi"
	"github.com/mbarbosa/flowgate/pkg/collaborators/logging"
	"github.com/mbarbosa/flowgate/pkg/config"
	"github.com/mbarbosa/flowgate/pkg/protocol"
	"github.com/mbarbosa/flowgate/pkg/registry"
)

// Collaborators bundles the external CRM dependencies the action factories
// need.
type Collaborators struct {
	Mailer      protocol.Mailer
	TaskCreator protocol.TaskCreator
	EntityStore protocol.EntityStore
}

// NewCollaborators builds collaborators from the CRM config. Without a
// configured base URL the logging implementations are used, so local runs
// against file persistence work without a CRM backend.
func NewCollaborators(cfg config.CRMConfig, logger *slog.Logger) (Collaborators, error) {
	if cfg.BaseURL == "" {
		fallback := logging.NewCollaborator(logger)

		return Collaborators{Mailer: fallback, TaskCreator: fallback, EntityStore: fallback}, nil
	}

	client, err := crmapi.NewClient(cfg, logger)
	if err != nil {
		return Collaborators{}, err
	}

	return Collaborators{Mailer: client, TaskCreator: client, EntityStore: client}, nil
}

// NewRegistry builds the action registry with the closed set of native
// actions.
func NewRegistry(logger *slog.Logger, collaborators Collaborators) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(sendemail.NewFactory(collaborators.Mailer))
	reg.RegisterAction(createtask.NewFactory(collaborators.TaskCreator))
	reg.RegisterAction(updatedata.NewFactory(collaborators.EntityStore))
	reg.RegisterAction(webhook.NewFactory())

	return reg
}
