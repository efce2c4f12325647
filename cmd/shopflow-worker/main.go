package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/shopflow/pkg/cmd"
	"github.com/dukex/shopflow/pkg/log"
	"github.com/dukex/shopflow/pkg/workflow"
)

func main() {
	command := NewCommand()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		log.WithModule("shopflow-worker").Error("Shopflow worker stopped", "error", err)
		os.Exit(1)
	}
}

func NewCommand() *cli.Command {
	flags := append(cmd.CommonFlags(), cmd.ActionFlags()...)
	flags = append(flags,
		cmd.TracingFlag(),
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.StringFlag{
			Name:    "catalog-refresh",
			Usage:   "Cron schedule of workflow catalog reloads",
			Value:   workflow.DefaultCatalogRefresh,
			Sources: cli.EnvVars("CATALOG_REFRESH"),
		},
		&cli.IntFlag{
			Name:    "max-concurrent",
			Usage:   "Maximum executions run at the same time for one event",
			Value:   workflow.DefaultMaxConcurrent,
			Sources: cli.EnvVars("MAX_CONCURRENT_EXECUTIONS"),
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Usage:   "Port serving /metrics and /livez",
			Value:   defaultMetricsPort,
			Sources: cli.EnvVars("METRICS_PORT"),
		},
	)

	return &cli.Command{
		Name:                  "shopflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Run the workflows matched by commerce events",
		Flags:                 flags,
		Action:                runWorker,
		Commands: []*cli.Command{
			RunOnceCommand(),
		},
	}
}
