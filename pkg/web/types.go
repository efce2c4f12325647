package web

import (
	"github.com/moogar0880/problems"

	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/services"
)

// Ingress headers.
const (
	HeaderShopDomain = "X-Shop-Domain"
	HeaderTopic      = "X-Topic"
	HeaderEventID    = "X-Event-Id"
)

// EventStatus tells the caller what happened to an ingested event.
type EventStatus string

const (
	EventStatusAccepted  EventStatus = "accepted"
	EventStatusDuplicate EventStatus = "duplicate"
)

// ReceiveEventRequest is an inbound event read from the ingress headers and body.
type ReceiveEventRequest struct {
	ShopDomain string         `validate:"required,hostname"`
	Topic      string         `validate:"required"`
	EventID    string         `validate:"omitempty,max=255"`
	Payload    map[string]any `validate:"required"`
}

type ReceiveEventResponse struct {
	ID     string      `json:"id,omitempty"`
	Status EventStatus `json:"status"`
}

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"                  validate:"required,min=3"`
	Description string         `json:"description,omitempty"`
	ShopDomain  string         `json:"shop_domain"           validate:"required"`
	OwnerEmail  string         `json:"owner_email,omitempty" validate:"omitempty,email"`
	Active      bool           `json:"active"`
	Nodes       []*models.Node `json:"nodes"                 validate:"required,min=1"`
	Edges       []*models.Edge `json:"edges"`
}

func (r CreateWorkflowRequest) toWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		ShopDomain:  r.ShopDomain,
		OwnerEmail:  r.OwnerEmail,
		Active:      r.Active,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
	}
}

// ValidationExtensions lists every rejected field of a 400 validation problem.
type ValidationExtensions struct {
	Problems []services.Problem `json:"problems"`
}

// ValidationProblem is the body of a rejected workflow.
type ValidationProblem = problems.ExtendedProblem[ValidationExtensions]
