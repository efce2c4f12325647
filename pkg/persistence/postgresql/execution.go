package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/persistence"
)

const selectExecution = `
	SELECT
		id
	  , workflow_id
	  , event
	  , COALESCE(external_event_id, '')
	  , shop_domain
	  , status
	  , COALESCE(error, '')
	  , started_at
	  , finished_at
	FROM executions
`

// ExecutionRepository handles execution and execution log database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) SaveExecution(ctx context.Context, execution *models.Execution) error {
	query := `
		INSERT INTO executions (id, workflow_id, event, external_event_id, shop_domain, status, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at
	`

	_, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.Event,
		execution.ExternalEventID,
		execution.ShopDomain,
		string(execution.Status),
		execution.Error,
		execution.StartedAt,
		execution.FinishedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	execution, err := scanExecution(r.db.QueryRowContext(ctx, selectExecution+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetExecution", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, selectExecution+" WHERE workflow_id = $1 ORDER BY started_at ASC", workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) AppendExecutionLog(ctx context.Context, entry *models.ExecutionLog) error {
	var data []byte

	if entry.Data != nil {
		encoded, err := json.Marshal(entry.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal log data: %w", err)
		}

		data = encoded
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO execution_logs (id, execution_id, node_id, level, message, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.ExecutionID, entry.NodeID, string(entry.Level), entry.Message, data, entry.CreatedAt)
	if err != nil {
		return persistence.NewExecutionError("AppendExecutionLog", entry.ExecutionID, err)
	}

	return nil
}

func (r *ExecutionRepository) ExecutionLogs(ctx context.Context, executionID string) ([]*models.ExecutionLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, execution_id, COALESCE(node_id, ''), level, message, data, created_at
		FROM execution_logs
		WHERE execution_id = $1
		ORDER BY position ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	entries := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		var (
			entry models.ExecutionLog
			level string
			data  []byte
		)

		err := rows.Scan(&entry.ID, &entry.ExecutionID, &entry.NodeID, &level, &entry.Message, &data, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		entry.Level = models.LogLevel(level)

		if len(data) > 0 {
			if err := json.Unmarshal(data, &entry.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal log data: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return entries, nil
}

func scanExecution(row scanner) (*models.Execution, error) {
	var (
		execution  models.Execution
		status     string
		finishedAt sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.Event,
		&execution.ExternalEventID,
		&execution.ShopDomain,
		&status,
		&execution.Error,
		&execution.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)

	if finishedAt.Valid {
		finished := finishedAt.Time.UTC()
		execution.FinishedAt = &finished
	}

	execution.StartedAt = execution.StartedAt.UTC()

	return &execution, nil
}
