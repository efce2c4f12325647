// Package models defines the core domain models for commerce event automation
package models

import "time"

// Workflow represents a merchant automation: a graph of nodes connected by edges.
type Workflow struct {
	ID          string    `json:"id"                    validate:"required"`
	Name        string    `json:"name"                  validate:"required,min=3"`
	ShopDomain  string    `json:"shop_domain"           validate:"required"`
	OwnerEmail  string    `json:"owner_email,omitempty" validate:"omitempty,email"`
	Active      bool      `json:"active"`
	Nodes       []*Node   `json:"nodes"                 validate:"dive"`
	Edges       []*Edge   `json:"edges"                 validate:"dive"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Description string    `json:"description,omitempty"`
}

// TriggerNodes returns the trigger nodes of the workflow in declaration order.
func (w *Workflow) TriggerNodes() []*Node {
	triggers := make([]*Node, 0, 1)

	for _, node := range w.Nodes {
		if node != nil && node.Type == NodeTypeTrigger {
			triggers = append(triggers, node)
		}
	}

	return triggers
}
