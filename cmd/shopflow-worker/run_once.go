package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/shopflow/pkg/cmd"
	"github.com/dukex/shopflow/pkg/execlog"
	"github.com/dukex/shopflow/pkg/log"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/services"
	"github.com/dukex/shopflow/pkg/workflow"
)

// RunOnceCommand runs one workflow file against one event file and prints the executions
// with their logs, without touching the bus or the database.
func RunOnceCommand() *cli.Command {
	return &cli.Command{
		Name:  "run-once",
		Usage: "Run a workflow file against an event file and print the execution log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow",
				Aliases:  []string{"w"},
				Usage:    "Path to the workflow JSON file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "event",
				Aliases:  []string{"e"},
				Usage:    "Path to the event JSON file (topic, shop_domain, payload)",
				Required: true,
			},
		},
		Action: runOnce,
	}
}

// singleWorkflow serves one workflow to the trigger matcher whatever its shop or active flag.
type singleWorkflow struct {
	workflow *models.Workflow
}

func (s singleWorkflow) FindActiveByShop(context.Context, string) ([]*models.Workflow, error) {
	return []*models.Workflow{s.workflow}, nil
}

type runReport struct {
	Execution *models.Execution      `json:"execution"`
	Logs      []*models.ExecutionLog `json:"logs"`
}

func runOnce(ctx context.Context, command *cli.Command) error {
	cmd.SetupLogging(command)

	logger := log.WithModule("shopflow-run-once")

	var wf models.Workflow
	if err := readJSON(command.String("workflow"), &wf); err != nil {
		return err
	}

	var event models.Event
	if err := readJSON(command.String("event"), &event); err != nil {
		return err
	}

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	if event.ShopDomain == "" {
		event.ShopDomain = wf.ShopDomain
	}

	reg, err := cmd.NewRegistry(logger, cmd.RegistryConfigFromFlags(command))
	if err != nil {
		return err
	}

	if wf.ID == "" {
		wf.ID = "run-once"
	}

	if err := services.NewValidator(reg).Validate(&wf); err != nil {
		return err
	}

	store := execlog.NewMemoryStore()
	executor := workflow.NewExecutor(store, reg, workflow.WithLogger(logger))
	service := workflow.NewService(workflow.NewTriggerMatcher(singleWorkflow{workflow: &wf}, logger), executor, logger)

	executions, err := service.HandleEvent(ctx, event)
	if err != nil {
		return err
	}

	if len(executions) == 0 {
		return fmt.Errorf("no trigger of workflow %q matches topic %q", wf.ID, event.Topic)
	}

	reports := make([]runReport, 0, len(executions))
	for _, execution := range executions {
		reports = append(reports, runReport{Execution: execution, Logs: store.Entries(execution.ID)})
	}

	encoder := json.NewEncoder(command.Root().Writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(reports)
}

func readJSON(path string, out any) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return nil
}
