package models

import "time"

// Event is a normalised inbound commerce event.
type Event struct {
	Topic           string         `json:"topic"             validate:"required"`
	ShopDomain      string         `json:"shop_domain"       validate:"required"`
	ExternalEventID string         `json:"external_event_id"`
	Payload         map[string]any `json:"payload"`
	ReceivedAt      time.Time      `json:"received_at"`
}
