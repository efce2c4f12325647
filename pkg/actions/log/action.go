// Package log records a merchant configured message in the execution log.
package log

import (
	"context"
	"strings"

	"github.com/dukex/shopflow/pkg/actions/support"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/protocol"
)

type Action struct{}

func NewAction() *Action {
	return &Action{}
}

// Handle records the message. It never fails.
func (a *Action) Handle(ctx context.Context, node *models.Node, _ map[string]any, execCtx *protocol.ExecutionContext) error {
	settings := support.Settings(node)
	nodeID := support.NodeID(node)

	message := support.String(settings, "message")
	if message == "" {
		message = "(empty message)"
	}

	switch strings.ToLower(support.String(settings, "level")) {
	case "warn", "warning":
		execCtx.Log.Warning(ctx, nodeID, message, nil)
	case "error":
		execCtx.Log.Error(ctx, nodeID, message, nil)
	default:
		execCtx.Log.Info(ctx, nodeID, message, nil)
	}

	return nil
}

func (a *Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log. Supports {{ }} variables.",
				"examples": []string{
					"Order {{ id }} received",
					"Customer {{ customer.email }} tagged",
				},
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"default":     "info",
				"enum":        []string{"info", "warn", "warning", "error"},
			},
		},
		"required": []string{"message"},
	}
}
