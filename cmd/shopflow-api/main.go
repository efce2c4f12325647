package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/shopflow/pkg/cmd"
	"github.com/dukex/shopflow/pkg/log"
	"github.com/dukex/shopflow/pkg/metrics"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "shopflow-api",
		Usage:                 "Receive commerce events and manage workflows",
		EnableShellCompletion: true,
		Flags: append(cmd.CommonFlags(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL used to drop duplicate events (in-memory when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			cmd.SetupLogging(command)

			logger := log.WithModule("shopflow-api")
			logger.InfoContext(ctx, "Initializing Shopflow API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "shopflow-api", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			deduplicator, closeDedup, err := cmd.NewDeduplicator(ctx, logger, command.String("redis-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := closeDedup(); err != nil {
					logger.ErrorContext(ctx, "Failed to close deduplicator", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				deduplicator,
				metrics.New(),
			)

			return api.Start(ctx, command.Int("port"))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		log.WithModule("shopflow-api").Error("Shopflow API stopped", "error", err)
		os.Exit(1)
	}
}
