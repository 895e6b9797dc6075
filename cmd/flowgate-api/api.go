// Package main provides the flowgate API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/mbarbosa/flowgate/pkg/eventbus"
	"github.com/mbarbosa/flowgate/pkg/persistence"
	"github.com/mbarbosa/flowgate/pkg/registry"
	"github.com/mbarbosa/flowgate/pkg/services"
	"github.com/mbarbosa/flowgate/pkg/web"
	"github.com/mbarbosa/flowgate/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() (*fiber.App, error) {
	workflowService := services.NewWorkflow(a.persistence)

	templateService, err := services.NewTemplate(a.persistence)
	if err != nil {
		return nil, err
	}

	executor := workflow.NewExecutor(a.logger, a.persistence, a.registry, a.eventBus)
	triggerProcessor := workflow.NewTriggerProcessor(a.logger, a.persistence, executor, a.eventBus)

	handlers := web.NewAPIHandlers(
		workflowService,
		templateService,
		executor,
		triggerProcessor,
		a.validate,
		a.registry,
		a.persistence,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowgate API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	app.Get("/executions/:id", handlers.GetExecution)
	app.Get("/stats", handlers.GetStats)
	app.Post("/triggers/:type/process", handlers.ProcessTriggers)

	tpl := app.Group("/templates")
	tpl.Get("/", handlers.GetTemplates)
	tpl.Post("/", handlers.CreateTemplate)
	tpl.Post("/:id/instantiate", handlers.InstantiateTemplate)

	app.Get("/health", handlers.HealthCheck)

	return app, nil
}

func (a *API) Start(port int) error {
	app, err := a.App()
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
