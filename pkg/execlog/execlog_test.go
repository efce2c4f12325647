package execlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/shopflow/pkg/models"
)

type failingStore struct{}

func (failingStore) AppendExecutionLog(context.Context, *models.ExecutionLog) error {
	return errors.New("database is gone")
}

func TestLogger_AppendsEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	logger := NewLogger(store, "exec-1", slog.New(slog.DiscardHandler))

	logger.Info(ctx, "node-1", "started", nil)
	logger.Warning(ctx, "node-2", "missing id", map[string]any{"field": "id"})
	logger.Error(ctx, "", "boom", nil)

	entries := store.Entries("exec-1")
	require.Len(t, entries, 3)

	assert.Equal(t, models.LogLevelInfo, entries[0].Level)
	assert.Equal(t, "node-1", entries[0].NodeID)
	assert.Equal(t, models.LogLevelWarning, entries[1].Level)
	assert.Equal(t, "id", entries[1].Data["field"])
	assert.Equal(t, models.LogLevelError, entries[2].Level)
	assert.Empty(t, entries[2].NodeID)
	assert.NotEmpty(t, entries[2].ID)
	assert.False(t, entries[2].CreatedAt.IsZero())

	assert.Equal(t, 1, logger.Errors())
	assert.Len(t, store.ByLevel("exec-1", models.LogLevelError), 1)
	assert.Empty(t, store.Entries("other"))
}

func TestLogger_SwallowsStoreErrors(t *testing.T) {
	var diag bytes.Buffer

	logger := NewLogger(failingStore{}, "exec-2", slog.New(slog.NewTextHandler(&diag, nil)))

	assert.NotPanics(t, func() {
		logger.Error(context.Background(), "node-1", "upstream failed", nil)
	})

	assert.Equal(t, 1, logger.Errors())
	assert.Contains(t, diag.String(), "Failed to persist execution log")
	assert.Contains(t, diag.String(), "database is gone")
}

func TestLogger_ConcurrentAppends(t *testing.T) {
	store := NewMemoryStore()
	logger := NewLogger(store, "exec-3", slog.New(slog.DiscardHandler))

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			logger.Info(context.Background(), fmt.Sprintf("node-%d", i), "branch done", nil)
		}()
	}

	wg.Wait()

	assert.Len(t, store.Entries("exec-3"), 50)
}

func TestLogger_NilStore(t *testing.T) {
	logger := NewLogger(nil, "exec-4", nil)

	logger.Error(context.Background(), "node", "still counted", nil)

	assert.Equal(t, 1, logger.Errors())
}
