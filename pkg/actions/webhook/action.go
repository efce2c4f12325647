// Package webhook posts the triggering event to a merchant endpoint.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dukex/shopflow/pkg/actions/support"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/protocol"
)

const Timeout = 10 * time.Second

// Envelope is the body posted to the endpoint.
type Envelope struct {
	Event           string         `json:"event"`
	ExternalEventID string         `json:"external_event_id"`
	Payload         map[string]any `json:"payload"`
	Timestamp       string         `json:"timestamp"`
}

type Action struct {
	client protocol.HTTPDoer
	now    func() time.Time
}

func NewAction(client protocol.HTTPDoer) *Action {
	return &Action{client: client, now: time.Now}
}

func (a *Action) Handle(ctx context.Context, node *models.Node, payload map[string]any, execCtx *protocol.ExecutionContext) error {
	settings := support.Settings(node)
	nodeID := support.NodeID(node)

	url := support.String(settings, "url")
	if url == "" {
		execCtx.Log.Error(ctx, nodeID, "Webhook URL is not configured", nil)

		return nil
	}

	envelope := Envelope{
		Event:     execCtx.EventName(),
		Payload:   payload,
		Timestamp: a.now().UTC().Format(time.RFC3339),
	}
	if execCtx.Execution != nil {
		envelope.ExternalEventID = execCtx.Execution.ExternalEventID
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		execCtx.Log.Error(ctx, nodeID, "Failed to encode webhook payload", map[string]any{"error": err.Error()})

		return nil
	}

	resp, err := a.client.Do(ctx, protocol.HTTPRequest{
		Method:  http.MethodPost,
		URL:     url,
		Headers: http.Header{"Content-Type": []string{"application/json"}},
		Body:    body,
		Timeout: Timeout,
	})
	if err != nil {
		execCtx.Log.Error(ctx, nodeID, "Webhook request failed", map[string]any{"url": url, "error": err.Error()})

		return nil
	}

	if resp.Status < 200 || resp.Status >= 300 {
		execCtx.Log.Error(ctx, nodeID, "Webhook returned an error status", map[string]any{
			"url":    url,
			"status": resp.Status,
			"body":   string(resp.Body),
		})

		return nil
	}

	execCtx.Log.Info(ctx, nodeID, "Webhook delivered", map[string]any{"url": url, "status": resp.Status})

	return nil
}

func (a *Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Endpoint receiving the event envelope as a JSON POST.",
				"minLength":   1,
			},
		},
		"required": []string{"url"},
	}
}
