package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/persistence"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

type Workflow struct {
	persistence persistence.Persistence
	validator   *Validator
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, validator *Validator) *Workflow {
	return &Workflow{
		persistence: persistence,
		validator:   validator,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func (w *Workflow) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Save validates and stores wf, assigning an id to new workflows.
func (w *Workflow) Save(ctx context.Context, wf *models.Workflow) (*models.Workflow, error) {
	if wf == nil {
		return nil, ErrWorkflowNil
	}

	if wf.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		wf.ID = id.String()
	}

	if wf.Edges == nil {
		wf.Edges = []*models.Edge{}
	}

	if w.validator != nil {
		if err := w.validator.Validate(wf); err != nil {
			return nil, err
		}
	}

	err := w.persistence.WorkflowRepository().Save(ctx, wf)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return wf, nil
}

func (w *Workflow) Delete(ctx context.Context, id string) error {
	return w.persistence.WorkflowRepository().Delete(ctx, id)
}

// Executions returns the run history of a workflow.
func (w *Workflow) Executions(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	_, err := w.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return w.persistence.ExecutionRepository().ExecutionsByWorkflow(ctx, workflowID)
}

func (w *Workflow) Execution(ctx context.Context, id string) (*models.Execution, error) {
	return w.persistence.ExecutionRepository().GetExecution(ctx, id)
}

// ExecutionLogs returns the log of an execution, failing when the execution does not exist.
func (w *Workflow) ExecutionLogs(ctx context.Context, executionID string) ([]*models.ExecutionLog, error) {
	_, err := w.Execution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	return w.persistence.ExecutionRepository().ExecutionLogs(ctx, executionID)
}
