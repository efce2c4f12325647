package execlog

import (
	"context"
	"sync"

	"github.com/dukex/shopflow/pkg/models"
)

// MemoryStore keeps executions and their entries in memory, for tests and one-off runs.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    []*models.ExecutionLog
	executions map[string]models.Execution
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{executions: make(map[string]models.Execution)}
}

// SaveExecution stores a copy of execution.
func (m *MemoryStore) SaveExecution(_ context.Context, execution *models.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.executions[execution.ID] = *execution

	return nil
}

// Execution returns the last saved copy of an execution.
func (m *MemoryStore) Execution(id string) (models.Execution, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	execution, ok := m.executions[id]

	return execution, ok
}

func (m *MemoryStore) AppendExecutionLog(_ context.Context, entry *models.ExecutionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)

	return nil
}

// Entries returns the entries of one execution in append order.
func (m *MemoryStore) Entries(executionID string) []*models.ExecutionLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*models.ExecutionLog, 0)

	for _, entry := range m.entries {
		if entry.ExecutionID == executionID {
			entries = append(entries, entry)
		}
	}

	return entries
}

// ByLevel returns the entries of one execution at the given level.
func (m *MemoryStore) ByLevel(executionID string, level models.LogLevel) []*models.ExecutionLog {
	entries := make([]*models.ExecutionLog, 0)

	for _, entry := range m.Entries(executionID) {
		if entry.Level == level {
			entries = append(entries, entry)
		}
	}

	return entries
}
