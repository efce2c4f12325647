package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/shopflow/pkg/cmd"
	"github.com/dukex/shopflow/pkg/log"
	"github.com/dukex/shopflow/pkg/metrics"
	"github.com/dukex/shopflow/pkg/workflow"
)

const defaultMetricsPort = 9092

func runWorker(ctx context.Context, command *cli.Command) error {
	cmd.SetupLogging(command)

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("shopflow-worker").With("worker_id", workerID)
	logger.InfoContext(ctx, "Initializing Shopflow Worker")

	tracer, shutdownTracer, err := cmd.NewTracer(ctx, logger, command.Bool("otel-enabled"), "shopflow-worker")
	if err != nil {
		return err
	}

	defer func() {
		if err := shutdownTracer(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
		}
	}()

	reg, err := cmd.NewRegistry(logger, cmd.RegistryConfigFromFlags(command))
	if err != nil {
		return err
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := persistence.Close(context.WithoutCancel(ctx))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "shopflow-worker", logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	catalog := workflow.NewCatalog(persistence.WorkflowRepository(), logger)

	err = catalog.Start(ctx, command.String("catalog-refresh"))
	if err != nil {
		return err
	}
	defer catalog.Stop()

	m := metrics.New()

	executor := workflow.NewExecutor(
		persistence.ExecutionRepository(),
		reg,
		workflow.WithTracer(tracer),
		workflow.WithMetrics(m),
		workflow.WithLogger(logger),
	)

	service := workflow.NewService(workflow.NewTriggerMatcher(catalog, logger), executor, logger)
	service.SetMaxConcurrent(command.Int("max-concurrent"))

	worker := NewWorker(workerID, service, eventBus, logger)

	err = worker.Start(ctx)
	if err != nil {
		return err
	}

	go serveMetrics(ctx, logger, m, command.Int("metrics-port"))

	<-ctx.Done()
	logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func metricsApp(m *metrics.Metrics) *fiber.App {
	app := fiber.New()
	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	return app
}

func serveMetrics(ctx context.Context, logger *slog.Logger, m *metrics.Metrics, port int) {
	app := metricsApp(m)

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			logger.Error("Failed to shut down metrics server", "error", err)
		}
	}()

	err := app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	if err != nil {
		logger.ErrorContext(ctx, "Metrics server stopped", "error", err)
	}
}
