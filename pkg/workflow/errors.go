package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrNilWorkflow      = errors.New("workflow is nil")
	ErrInvalidStartNode = errors.New("start node is not a trigger of the workflow")
	ErrActionPanicked   = errors.New("action panicked")
)

// NodeError describes a fatal failure of one node during an execution.
type NodeError struct {
	NodeID    string
	ActionKey string
	Err       error
}

func (e *NodeError) Error() string {
	if e.ActionKey != "" {
		return fmt.Sprintf("node %s (%s): %v", e.NodeID, e.ActionKey, e.Err)
	}

	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
