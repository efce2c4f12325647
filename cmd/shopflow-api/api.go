// Package main provides the Shopflow ingress and administration API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/dukex/shopflow/pkg/dedup"
	"github.com/dukex/shopflow/pkg/eventbus"
	"github.com/dukex/shopflow/pkg/metrics"
	"github.com/dukex/shopflow/pkg/persistence"
	"github.com/dukex/shopflow/pkg/registry"
	"github.com/dukex/shopflow/pkg/services"
	"github.com/dukex/shopflow/pkg/web"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	eventBus     eventbus.EventPublisher
	deduplicator dedup.Deduplicator
	metrics      *metrics.Metrics
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
	deduplicator dedup.Deduplicator,
	m *metrics.Metrics,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		eventBus:     eventBus,
		deduplicator: deduplicator,
		metrics:      m,
	}
}

// schemaRegistry holds the built-in actions for workflow validation; they are never run here.
func (a *API) schemaRegistry() *registry.Registry {
	reg := registry.NewRegistry(a.logger)
	reg.RegisterDefaultActions(registry.Dependencies{})

	return reg
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.persistence, services.NewValidator(a.schemaRegistry()))
	handlers := web.NewAPIHandlers(a.logger, workflowService, a.eventBus, a.deduplicator, a.metrics)

	app := fiber.New()
	app.Use(fiberrecover.New())
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: handlers.Ready,
	}))
	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Shopflow API")
	})

	app.Post("/events", handlers.ReceiveEvent)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	e := app.Group("/executions")
	e.Get("/:id", handlers.GetExecution)
	e.Get("/:id/logs", handlers.GetExecutionLogs)

	return app
}

// Start serves the API until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	a.logger.InfoContext(ctx, "Starting API server", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
