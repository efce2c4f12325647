// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/dukex/shopflow/pkg/execlog"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/protocol"
)

const TestShopDomain = "demo.myshopify.com"

// CreateTestNode creates a test Node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:        uuid.New().String(),
		Type:      models.NodeTypeAction,
		ActionKey: "log_message",
		Settings:  map[string]any{"message": "test"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node id.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithTrigger configures the node as a trigger for topic.
func WithTrigger(topic string) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = models.NodeTypeTrigger
		n.ActionKey = ""
		n.Settings = map[string]any{models.TopicSettingKey: topic}
	}
}

// WithAction configures the node as an action.
func WithAction(key string, settings map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = models.NodeTypeAction
		n.ActionKey = key
		n.Settings = settings
	}
}

// WithCondition configures the node as a condition.
func WithCondition(settings map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = models.NodeTypeCondition
		n.ActionKey = ""
		n.Settings = settings
	}
}

// WithStopper configures the node as a stopper.
func WithStopper() func(*models.Node) {
	return func(n *models.Node) {
		n.Type = models.NodeTypeStopper
		n.ActionKey = ""
		n.Settings = nil
	}
}

// CreateTestWorkflow creates an active workflow of the test shop holding nodes.
func CreateTestWorkflow(nodes ...*models.Node) *models.Workflow {
	return &models.Workflow{
		ID:         uuid.New().String(),
		Name:       "Test Workflow",
		ShopDomain: TestShopDomain,
		OwnerEmail: "owner@demo.example",
		Active:     true,
		Nodes:      nodes,
		Edges:      []*models.Edge{},
	}
}

// Connect appends an edge from source to target with an optional label.
func Connect(wf *models.Workflow, source, target, label string) *models.Edge {
	edge := &models.Edge{
		ID:           uuid.New().String(),
		SourceNodeID: source,
		TargetNodeID: target,
		Label:        label,
	}

	wf.Edges = append(wf.Edges, edge)

	return edge
}

// NewExecutionContext returns a context for running one action outside the executor,
// together with the store capturing its log entries.
func NewExecutionContext(event string, wf *models.Workflow) (*protocol.ExecutionContext, *execlog.MemoryStore) {
	if wf == nil {
		wf = CreateTestWorkflow()
	}

	execution := &models.Execution{
		ID:         uuid.New().String(),
		WorkflowID: wf.ID,
		Event:      event,
		ShopDomain: wf.ShopDomain,
		Status:     models.ExecutionStatusRunning,
	}

	store := execlog.NewMemoryStore()

	return &protocol.ExecutionContext{
		Execution: execution,
		Workflow:  wf,
		Log:       execlog.NewLogger(store, execution.ID, slog.New(slog.DiscardHandler)),
	}, store
}
