// Package execlog records the append-only run history of executions.
package execlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/shopflow/pkg/models"
)

// Store persists execution log entries.
type Store interface {
	AppendExecutionLog(ctx context.Context, entry *models.ExecutionLog) error
}

// Logger records entries for one execution. It is safe for concurrent use.
// Store failures are reported to the diagnostic logger and never returned.
type Logger struct {
	store       Store
	executionID string
	logger      *slog.Logger
	now         func() time.Time

	mu     sync.Mutex
	errors int
}

func NewLogger(store Store, executionID string, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}

	return &Logger{
		store:       store,
		executionID: executionID,
		logger:      logger.With("module", "execlog", "execution_id", executionID),
		now:         time.Now,
	}
}

func (l *Logger) Info(ctx context.Context, nodeID, message string, data map[string]any) {
	l.append(ctx, models.LogLevelInfo, nodeID, message, data)
}

func (l *Logger) Warning(ctx context.Context, nodeID, message string, data map[string]any) {
	l.append(ctx, models.LogLevelWarning, nodeID, message, data)
}

func (l *Logger) Error(ctx context.Context, nodeID, message string, data map[string]any) {
	l.append(ctx, models.LogLevelError, nodeID, message, data)
}

// Errors returns how many error entries were recorded.
func (l *Logger) Errors() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.errors
}

func (l *Logger) append(ctx context.Context, level models.LogLevel, nodeID, message string, data map[string]any) {
	entry := &models.ExecutionLog{
		ID:          uuid.NewString(),
		ExecutionID: l.executionID,
		NodeID:      nodeID,
		Level:       level,
		Message:     message,
		Data:        data,
		CreatedAt:   l.now().UTC(),
	}

	l.logger.Log(ctx, slogLevel(level), message, "node_id", nodeID, "data", data)

	l.mu.Lock()
	defer l.mu.Unlock()

	if level == models.LogLevelError {
		l.errors++
	}

	if l.store == nil {
		return
	}

	if err := l.store.AppendExecutionLog(ctx, entry); err != nil {
		l.logger.ErrorContext(ctx, "Failed to persist execution log", "node_id", nodeID, "error", err)
	}
}

func slogLevel(level models.LogLevel) slog.Level {
	switch level {
	case models.LogLevelWarning:
		return slog.LevelWarn
	case models.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
