package main

import (
	"context"
	"log/slog"

	"github.com/dukex/shopflow/pkg/eventbus"
	"github.com/dukex/shopflow/pkg/events"
	"github.com/dukex/shopflow/pkg/workflow"
)

// Worker runs the workflows matched by every commerce event received from the bus.
type Worker struct {
	id       string
	logger   *slog.Logger
	service  *workflow.Service
	eventBus eventbus.EventBus
}

func NewWorker(id string, service *workflow.Service, eventBus eventbus.EventBus, logger *slog.Logger) *Worker {
	return &Worker{
		id:       id,
		logger:   logger.With("module", "shopflow-worker", "worker_id", id),
		service:  service,
		eventBus: eventBus,
	}
}

// Start subscribes to the bus. Events are handled in the background until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker")

	err := w.eventBus.Handle(events.CommerceEventReceivedEvent, w.handleCommerceEvent)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	return nil
}

// handleCommerceEvent never asks for redelivery once executions ran, since a redelivered
// event would run the same workflows again.
func (w *Worker) handleCommerceEvent(ctx context.Context, event any) error {
	received, ok := event.(*events.CommerceEventReceived)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for CommerceEventReceived")

		return nil
	}

	logger := w.logger.With(
		"message_id", received.ID,
		"topic", received.Event.Topic,
		"shop_domain", received.Event.ShopDomain,
		"external_event_id", received.Event.ExternalEventID,
	)
	logger.InfoContext(ctx, "Processing commerce event")

	executions, err := w.service.HandleEvent(ctx, received.Event)
	if err != nil {
		logger.ErrorContext(ctx, "Some executions could not be recorded", "error", err)
	}

	unpublished := 0

	for _, execution := range executions {
		publishErr := w.eventBus.Publish(ctx, execution.WorkflowID, events.NewExecutionOutcome(execution))
		if publishErr != nil {
			logger.ErrorContext(ctx, "Failed to publish execution outcome", "execution_id", execution.ID, "error", publishErr)
			unpublished++
		}
	}

	if unpublished > 0 {
		logger.WarnContext(ctx, "Execution outcomes were not all published", "failed", unpublished)
	}

	logger.InfoContext(ctx, "Commerce event processed", "executions", len(executions))

	return nil
}
