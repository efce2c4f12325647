// Package protocol defines the contracts between the execution engine, the action handlers
// and their external collaborators.
package protocol

import (
	"context"

	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/template"
)

// Action performs the side effect of one action node.
//
// Settings on node arrive already flattened and resolved against the payload, exactly once.
// Handlers must not resolve them again.
// A returned error is fatal for the branch and marks the execution failed; recoverable
// problems are recorded through execCtx.Log instead.
type Action interface {
	Handle(ctx context.Context, node *models.Node, payload map[string]any, execCtx *ExecutionContext) error

	// Schema returns the JSON schema describing the node settings the action accepts.
	Schema() map[string]any
}

// MissModer is implemented by actions whose settings resolve missing variables with a mode
// other than template.LeaveTokenOnMiss.
type MissModer interface {
	MissMode() template.MissMode
}

// Recorder appends entries to the log of one execution.
type Recorder interface {
	Info(ctx context.Context, nodeID, message string, data map[string]any)
	Warning(ctx context.Context, nodeID, message string, data map[string]any)
	Error(ctx context.Context, nodeID, message string, data map[string]any)
}

// ExecutionContext is what an action knows about the run it is part of.
type ExecutionContext struct {
	Execution *models.Execution
	Workflow  *models.Workflow
	Log       Recorder
}

// EventName returns the topic of the event that started the execution.
func (e *ExecutionContext) EventName() string {
	if e == nil || e.Execution == nil {
		return ""
	}

	return e.Execution.Event
}

// ShopDomain returns the tenant the execution runs for.
func (e *ExecutionContext) ShopDomain() string {
	if e == nil {
		return ""
	}

	if e.Execution != nil && e.Execution.ShopDomain != "" {
		return e.Execution.ShopDomain
	}

	if e.Workflow != nil {
		return e.Workflow.ShopDomain
	}

	return ""
}

// OwnerEmail returns the email of the account owning the workflow.
func (e *ExecutionContext) OwnerEmail() string {
	if e == nil || e.Workflow == nil {
		return ""
	}

	return e.Workflow.OwnerEmail
}
