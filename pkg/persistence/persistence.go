// Package persistence provides the storage abstraction for workflows, executions and their logs.
package persistence

import (
	"context"

	"github.com/dukex/shopflow/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions. Lists are in insertion order.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	FindActiveByShop(ctx context.Context, shopDomain string) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution records and their append-only logs.
type ExecutionRepository interface {
	SaveExecution(ctx context.Context, execution *models.Execution) error
	GetExecution(ctx context.Context, id string) (*models.Execution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)

	AppendExecutionLog(ctx context.Context, entry *models.ExecutionLog) error
	ExecutionLogs(ctx context.Context, executionID string) ([]*models.ExecutionLog, error)
}
