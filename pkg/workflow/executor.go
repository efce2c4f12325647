// Package workflow matches inbound commerce events to workflows and walks their graphs.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/shopflow/pkg/conditional"
	"github.com/dukex/shopflow/pkg/execlog"
	"github.com/dukex/shopflow/pkg/graph"
	"github.com/dukex/shopflow/pkg/metrics"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/otelhelper"
	"github.com/dukex/shopflow/pkg/protocol"
	"github.com/dukex/shopflow/pkg/registry"
	"github.com/dukex/shopflow/pkg/template"
)

// ExecutionStore persists executions and their logs.
type ExecutionStore interface {
	execlog.Store
	SaveExecution(ctx context.Context, execution *models.Execution) error
}

type Executor struct {
	store     ExecutionStore
	registry  *registry.Registry
	evaluator *conditional.Evaluator
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

type ExecutorOption func(*Executor)

func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) { e.tracer = tracer }
}

func WithMetrics(m *metrics.Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger.With("module", "workflow_executor") }
}

func NewExecutor(store ExecutionStore, reg *registry.Registry, opts ...ExecutorOption) *Executor {
	executor := &Executor{
		store:     store,
		registry:  reg,
		evaluator: conditional.NewEvaluator(),
		tracer:    otelhelper.NoopTracer("shopflow/workflow"),
		logger:    slog.Default().With("module", "workflow_executor"),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// run is the mutable state of one execution.
type run struct {
	execution *models.Execution
	graph     *graph.Graph
	payload   map[string]any
	execCtx   *protocol.ExecutionContext
	log       *execlog.Logger
	visited   map[string]bool
	queue     []string
	fatal     error
}

// Execute walks wf from start for one event and returns the execution in its terminal state.
//
// Branch-level problems are recorded in the execution log. The returned error is only set
// when the execution could not be recorded or the start node is invalid.
func (e *Executor) Execute(ctx context.Context, wf *models.Workflow, start *models.Node, event models.Event) (*models.Execution, error) {
	if wf == nil {
		return nil, ErrNilWorkflow
	}

	g := graph.Load(wf)
	if start == nil || g.Node(start.ID) == nil || start.Type != models.NodeTypeTrigger {
		return nil, ErrInvalidStartNode
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate execution ID: %w", err)
	}

	shop := event.ShopDomain
	if shop == "" {
		shop = wf.ShopDomain
	}

	execution := &models.Execution{
		ID:              id.String(),
		WorkflowID:      wf.ID,
		Event:           event.Topic,
		ExternalEventID: event.ExternalEventID,
		ShopDomain:      shop,
		Status:          models.ExecutionStatusRunning,
		StartedAt:       e.now().UTC(),
	}

	logger := e.logger.With(
		"workflow_id", wf.ID,
		"execution_id", execution.ID,
		"event", event.Topic,
	)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.WorkflowNameKey, wf.Name),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.EventTopicKey, event.Topic),
		attribute.String(otelhelper.ShopDomainKey, shop),
	)
	defer span.End()

	err = e.store.SaveExecution(ctx, execution)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	finish := e.metrics.ExecutionStarted()

	logger.InfoContext(ctx, "Starting workflow execution", "start_node", start.ID)

	recorder := execlog.NewLogger(e.store, execution.ID, logger)

	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	r := &run{
		execution: execution,
		graph:     g,
		payload:   payload,
		execCtx:   &protocol.ExecutionContext{Execution: execution, Workflow: wf, Log: recorder},
		log:       recorder,
		visited:   map[string]bool{start.ID: true},
	}

	r.follow(g.Edges(start.ID))

	for len(r.queue) > 0 {
		nodeID := r.queue[0]
		r.queue = r.queue[1:]

		e.visit(ctx, r, nodeID)
	}

	e.complete(ctx, r)

	finished := e.now().UTC()
	execution.FinishedAt = &finished

	status := metrics.StatusSuccess
	if execution.Status == models.ExecutionStatusFailed {
		status = metrics.StatusFailed

		otelhelper.SetError(span, errors.New(execution.Error))
	}

	finish(status)

	err = e.store.SaveExecution(ctx, execution)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to save finished execution", "error", err)

		return execution, fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	logger.InfoContext(ctx, "Workflow execution finished", "status", execution.Status)

	return execution, nil
}

// complete settles the terminal status. A failed execution always carries an error entry.
func (e *Executor) complete(ctx context.Context, r *run) {
	if r.fatal == nil {
		r.execution.Status = models.ExecutionStatusSuccess

		return
	}

	r.execution.Status = models.ExecutionStatusFailed
	r.execution.Error = r.fatal.Error()

	if r.log.Errors() == 0 {
		r.log.Error(ctx, "", "Execution failed", map[string]any{"error": r.fatal.Error()})
	}
}

func (r *run) follow(edges []*models.Edge) {
	for _, edge := range edges {
		r.queue = append(r.queue, edge.TargetNodeID)
	}
}

func (r *run) fail(err error) {
	if r.fatal == nil {
		r.fatal = err
	}
}

func (e *Executor) visit(ctx context.Context, r *run, nodeID string) {
	node := r.graph.Node(nodeID)
	if node == nil {
		r.log.Warning(ctx, nodeID, "Edge points to a node that does not exist", nil)

		return
	}

	if r.visited[nodeID] {
		r.log.Warning(ctx, nodeID, "Node already visited in this execution, stopping branch", nil)

		return
	}

	r.visited[nodeID] = true

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.ExecutionIDKey, r.execution.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
		attribute.String(otelhelper.ActionKeyKey, node.ActionKey),
	)
	defer span.End()

	started := e.now()
	status := metrics.StatusSuccess

	switch node.Type {
	case models.NodeTypeAction:
		err := e.runAction(ctx, r, node)
		if err != nil {
			status = metrics.StatusFailed

			otelhelper.SetError(span, err)
		}
	case models.NodeTypeCondition:
		e.runCondition(ctx, r, node)
	case models.NodeTypeStopper:
		r.log.Info(ctx, node.ID, "Stopper reached, branch finished", nil)
	case models.NodeTypeTrigger:
		r.follow(r.graph.Edges(node.ID))
	default:
		status = metrics.StatusSkipped

		r.log.Warning(ctx, node.ID, "Unknown node type, stopping branch", map[string]any{"type": string(node.Type)})
	}

	e.metrics.RecordNode(string(node.Type), node.ActionKey, status, e.now().Sub(started))
}

// runAction returns a non-nil error only when the branch failed fatally.
func (e *Executor) runAction(ctx context.Context, r *run, node *models.Node) error {
	action := e.registry.GetAction(node.ActionKey)
	if action == nil {
		r.log.Error(ctx, node.ID, "Unknown action", map[string]any{"action_key": node.ActionKey})

		return nil
	}

	mode := template.LeaveTokenOnMiss
	if m, ok := action.(protocol.MissModer); ok {
		mode = m.MissMode()
	}

	resolved := &models.Node{
		ID:        node.ID,
		Type:      node.Type,
		ActionKey: node.ActionKey,
		Settings:  template.ResolveDeep(node.FlatSettings(), r.payload, mode),
		Position:  node.Position,
	}

	err := e.handle(ctx, action, resolved, r)
	if err != nil {
		nodeErr := &NodeError{NodeID: node.ID, ActionKey: node.ActionKey, Err: err}

		r.log.Error(ctx, node.ID, "Action failed", map[string]any{
			"action_key": node.ActionKey,
			"error":      err.Error(),
		})
		r.fail(nodeErr)

		return nodeErr
	}

	r.follow(r.graph.Edges(node.ID))

	return nil
}

func (e *Executor) handle(ctx context.Context, action protocol.Action, node *models.Node, r *run) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanicked, recovered)
		}
	}()

	return action.Handle(ctx, node, r.payload, r.execCtx)
}

func (e *Executor) runCondition(ctx context.Context, r *run, node *models.Node) {
	result, err := e.evaluator.Evaluate(node.FlatSettings(), r.payload)
	if err != nil {
		r.log.Error(ctx, node.ID, "Condition evaluation failed", map[string]any{"error": err.Error()})

		return
	}

	label := models.EdgeLabelFalse
	if result {
		label = models.EdgeLabelTrue
	}

	edges := r.graph.EdgesWithLabel(node.ID, label)
	if len(edges) == 0 {
		r.log.Info(ctx, node.ID, "No edge for condition result, branch finished", map[string]any{"result": result})

		return
	}

	r.follow(edges)
}
