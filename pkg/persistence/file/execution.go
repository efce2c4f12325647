package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/persistence"
)

// ExecutionRepository stores executions as JSON files and their logs as JSON lines.
type ExecutionRepository struct {
	root string
	mu   sync.RWMutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) executionsDir() string {
	return filepath.Join(er.root, "executions")
}

func (er *ExecutionRepository) logsDir() string {
	return filepath.Join(er.root, "execution_logs")
}

func (er *ExecutionRepository) SaveExecution(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	if err := os.MkdirAll(er.executionsDir(), 0750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	err = os.WriteFile(filepath.Join(er.executionsDir(), execution.ID+".json"), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write execution %s: %w", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetExecution(_ context.Context, id string) (*models.Execution, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewExecutionError("GetExecution", id, err)
	}

	er.mu.RLock()
	defer er.mu.RUnlock()

	return er.read(id)
}

func (er *ExecutionRepository) read(id string) (*models.Execution, error) {
	body, err := os.ReadFile(filepath.Join(er.executionsDir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("GetExecution", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
	}

	var execution models.Execution
	if err := json.Unmarshal(body, &execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

// ExecutionsByWorkflow returns the executions of a workflow, oldest first.
func (er *ExecutionRepository) ExecutionsByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	files, err := fs.Glob(os.DirFS(er.executionsDir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0)

	for _, file := range files {
		execution, err := er.read(strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].StartedAt.Before(executions[j].StartedAt)
	})

	return executions, nil
}

func (er *ExecutionRepository) AppendExecutionLog(_ context.Context, entry *models.ExecutionLog) error {
	if err := validateID(entry.ExecutionID); err != nil {
		return persistence.NewExecutionError("AppendExecutionLog", entry.ExecutionID, err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal execution log: %w", err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	if err := os.MkdirAll(er.logsDir(), 0750); err != nil {
		return fmt.Errorf("failed to create execution logs directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(er.logsDir(), entry.ExecutionID+".jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open execution log %s: %w", entry.ExecutionID, err)
	}

	_, err = file.Write(append(data, '\n'))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("failed to append execution log %s: %w", entry.ExecutionID, err)
	}

	return nil
}

// ExecutionLogs returns the log of an execution in append order.
func (er *ExecutionRepository) ExecutionLogs(_ context.Context, executionID string) ([]*models.ExecutionLog, error) {
	if err := validateID(executionID); err != nil {
		return nil, persistence.NewExecutionError("ExecutionLogs", executionID, err)
	}

	er.mu.RLock()
	defer er.mu.RUnlock()

	entries := make([]*models.ExecutionLog, 0)

	file, err := os.Open(filepath.Join(er.logsDir(), executionID+".jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}

		return nil, fmt.Errorf("failed to open execution log %s: %w", executionID, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		var entry models.ExecutionLog
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode execution log %s: %w", executionID, err)
		}

		entries = append(entries, &entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read execution log %s: %w", executionID, err)
	}

	return entries, nil
}
