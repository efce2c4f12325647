package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowError(t *testing.T) {
	err := NewWorkflowError("GetByID", "wf-1", ErrWorkflowNotFound)

	assert.True(t, IsWorkflowNotFound(err))
	assert.True(t, IsWorkflowNotFound(fmt.Errorf("loading: %w", err)))
	assert.False(t, IsExecutionNotFound(err))
	assert.Equal(t, "GetByID operation failed for workflow wf-1: workflow not found", err.Error())
}

func TestExecutionError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewExecutionError("SaveExecution", "exec-1", cause)

	assert.ErrorIs(t, err, cause)
	assert.False(t, IsExecutionNotFound(err))
	assert.True(t, IsExecutionNotFound(NewExecutionError("GetExecution", "exec-2", ErrExecutionNotFound)))
}
