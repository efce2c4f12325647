// Package httprequest performs a merchant configured HTTP call.
package httprequest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dukex/shopflow/pkg/actions/support"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/protocol"
)

const (
	Timeout = 10 * time.Second

	// MaxLoggedBody is how many characters of the response end up in the log.
	MaxLoggedBody = 200
)

type Action struct {
	client protocol.HTTPDoer
}

func NewAction(client protocol.HTTPDoer) *Action {
	return &Action{client: client}
}

func (a *Action) Handle(ctx context.Context, node *models.Node, payload map[string]any, execCtx *protocol.ExecutionContext) error {
	settings := support.Settings(node)
	nodeID := support.NodeID(node)

	url := support.String(settings, "url")
	if url == "" {
		execCtx.Log.Error(ctx, nodeID, "HTTP request URL is not configured", nil)

		return nil
	}

	method := strings.ToUpper(support.StringOr(settings, "method", http.MethodPost))

	headers := http.Header{}
	for name, value := range support.StringMap(settings, "headers") {
		headers.Set(name, value)
	}

	body, err := requestBody(method, settings, payload)
	if err != nil {
		execCtx.Log.Error(ctx, nodeID, "Failed to encode HTTP request body", map[string]any{"error": err.Error()})

		return nil
	}

	if len(body) > 0 && headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(ctx, protocol.HTTPRequest{
		Method:  method,
		URL:     url,
		Headers: headers,
		Body:    body,
		Timeout: Timeout,
	})
	if err != nil {
		execCtx.Log.Error(ctx, nodeID, "HTTP request failed", map[string]any{
			"method": method,
			"url":    url,
			"error":  err.Error(),
		})

		return nil
	}

	data := map[string]any{
		"method": method,
		"url":    url,
		"status": resp.Status,
		"body":   Truncate(string(resp.Body), MaxLoggedBody),
	}

	if resp.Status >= http.StatusBadRequest {
		execCtx.Log.Error(ctx, nodeID, "HTTP request returned an error status", data)

		return nil
	}

	execCtx.Log.Info(ctx, nodeID, "HTTP request completed", data)

	return nil
}

// requestBody returns the configured body, or the whole payload when none is set.
// GET and HEAD send nothing unless a body is configured.
func requestBody(method string, settings, payload map[string]any) ([]byte, error) {
	switch body := settings["body"].(type) {
	case string:
		if strings.TrimSpace(body) != "" {
			return []byte(body), nil
		}
	case nil:
	default:
		return json.Marshal(body)
	}

	if method == http.MethodGet || method == http.MethodHead {
		return nil, nil
	}

	return json.Marshal(payload)
}

// Truncate shortens s to at most limit characters.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	return string([]rune(s)[:limit])
}

func (a *Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"method": map[string]any{
				"type":        "string",
				"default":     http.MethodPost,
				"description": "HTTP method, case insensitive.",
			},
			"body": map[string]any{
				"type":        []string{"string", "object", "array"},
				"description": "Request body. Defaults to the event payload.",
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
		},
		"required": []string{"url"},
	}
}
