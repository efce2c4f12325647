// Package events defines the messages exchanged between the ingress API and the workers.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukex/shopflow/pkg/models"
)

type EventType string

// Topic carries every shopflow message.
const Topic = "shopflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	CommerceEventReceivedEvent EventType = "commerce.event.received"
	ExecutionFinishedEvent     EventType = "execution.finished"
	ExecutionFailedEvent       EventType = "execution.failed"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	ShopDomain string    `json:"shop_domain"`
}

func newBase(eventType EventType, shopDomain string) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		ShopDomain: shopDomain,
	}
}

// CommerceEventReceived is published by the ingress API for each accepted event.
type CommerceEventReceived struct {
	BaseEvent

	Event models.Event `json:"event"`
}

func NewCommerceEventReceived(event models.Event) *CommerceEventReceived {
	return &CommerceEventReceived{BaseEvent: newBase(CommerceEventReceivedEvent, event.ShopDomain), Event: event}
}

func (e CommerceEventReceived) GetType() EventType {
	return CommerceEventReceivedEvent
}

// ExecutionFinished reports an execution that ended successfully.
type ExecutionFinished struct {
	BaseEvent

	ExecutionID     string        `json:"execution_id"`
	WorkflowID      string        `json:"workflow_id"`
	Topic           string        `json:"topic"`
	ExternalEventID string        `json:"external_event_id,omitempty"`
	Duration        time.Duration `json:"duration"`
}

func (e ExecutionFinished) GetType() EventType {
	return ExecutionFinishedEvent
}

// ExecutionFailed reports an execution that ended in the failed state.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID     string `json:"execution_id"`
	WorkflowID      string `json:"workflow_id"`
	Topic           string `json:"topic"`
	ExternalEventID string `json:"external_event_id,omitempty"`
	Error           string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// NewExecutionOutcome returns the ExecutionFinished or ExecutionFailed event describing execution.
func NewExecutionOutcome(execution *models.Execution) interface{ GetType() EventType } {
	if execution.Status == models.ExecutionStatusFailed {
		return &ExecutionFailed{
			BaseEvent:       newBase(ExecutionFailedEvent, execution.ShopDomain),
			ExecutionID:     execution.ID,
			WorkflowID:      execution.WorkflowID,
			Topic:           execution.Event,
			ExternalEventID: execution.ExternalEventID,
			Error:           execution.Error,
		}
	}

	var duration time.Duration
	if execution.FinishedAt != nil {
		duration = execution.FinishedAt.Sub(execution.StartedAt)
	}

	return &ExecutionFinished{
		BaseEvent:       newBase(ExecutionFinishedEvent, execution.ShopDomain),
		ExecutionID:     execution.ID,
		WorkflowID:      execution.WorkflowID,
		Topic:           execution.Event,
		ExternalEventID: execution.ExternalEventID,
		Duration:        duration,
	}
}
