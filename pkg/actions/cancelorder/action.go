// Package cancelorder cancels the order of the triggering event.
package cancelorder

import (
	"context"
	"strings"

	"github.com/dukex/shopflow/pkg/actions/support"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/protocol"
	"github.com/dukex/shopflow/pkg/template"
)

// Reasons accepted by the platform. Anything else is sent as ReasonOther.
const (
	ReasonCustomer  = "customer"
	ReasonInventory = "inventory"
	ReasonFraud     = "fraud"
	ReasonDeclined  = "declined"
	ReasonOther     = "other"
)

var reasons = []string{ReasonCustomer, ReasonInventory, ReasonFraud, ReasonDeclined, ReasonOther}

const mutationOrderCancel = `mutation orderCancel($orderId: ID!, $reason: OrderCancelReason!, $refund: Boolean!, $restock: Boolean!, $notifyCustomer: Boolean, $staffNote: String) {
  orderCancel(orderId: $orderId, reason: $reason, refund: $refund, restock: $restock, notifyCustomer: $notifyCustomer, staffNote: $staffNote) {
    job { id }
    orderCancelUserErrors { field message code }
  }
}`

type Action struct {
	clients protocol.ClientProvider
}

func NewAction(clients protocol.ClientProvider) *Action {
	return &Action{clients: clients}
}

// NormalizeReason maps a configured reason onto the accepted set.
func NormalizeReason(reason string) string {
	reason = strings.ToLower(strings.TrimSpace(reason))

	for _, accepted := range reasons {
		if reason == accepted {
			return reason
		}
	}

	return ReasonOther
}

func (a *Action) Handle(ctx context.Context, node *models.Node, payload map[string]any, execCtx *protocol.ExecutionContext) error {
	settings := support.Settings(node)
	nodeID := support.NodeID(node)

	id := support.ResolveResourceID(payload, support.ResourceOrder, settings)
	if id == "" {
		execCtx.Log.Warning(ctx, nodeID, "No order id found. Skipping cancellation.", nil)

		return nil
	}

	client, err := a.clients.ClientFor(ctx, execCtx.ShopDomain())
	if err != nil {
		return protocol.NewContextError("commerce client for shop "+execCtx.ShopDomain(), err)
	}

	gid := support.ToGID(support.ResourceOrder, id)
	reason := NormalizeReason(support.String(settings, "reason"))
	variables := map[string]any{
		"orderId":        gid,
		"reason":         strings.ToUpper(reason),
		"refund":         support.Bool(settings, "refund", false),
		"restock":        support.Bool(settings, "restock", true),
		"notifyCustomer": support.Bool(settings, "notify_customer", false),
		"staffNote":      support.String(settings, "note"),
	}

	resp, err := client.GraphCall(ctx, mutationOrderCancel, variables)
	if err != nil {
		execCtx.Log.Error(ctx, nodeID, "Failed to cancel order", map[string]any{"id": gid, "error": err.Error()})

		return nil
	}

	if errs := cancelErrors(resp); len(errs) > 0 {
		execCtx.Log.Error(ctx, nodeID, "Failed to cancel order", map[string]any{"id": gid, "errors": errs})

		return nil
	}

	execCtx.Log.Info(ctx, nodeID, "Successfully cancelled order", map[string]any{"id": gid, "reason": reason})

	return nil
}

func cancelErrors(resp *protocol.CommerceResponse) []string {
	if resp == nil {
		return nil
	}

	errs := append([]string{}, resp.Errors...)

	list, _ := template.Lookup(resp.Body, "orderCancel.orderCancelUserErrors")

	items, _ := list.([]any)
	for _, item := range items {
		if entry, ok := item.(map[string]any); ok {
			if message, ok := entry["message"].(string); ok && message != "" {
				errs = append(errs, message)
			}
		}
	}

	return errs
}

func (a *Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{
				"type":        "string",
				"description": "Cancellation reason. Unknown values are sent as other.",
				"default":     ReasonOther,
			},
			"note": map[string]any{
				"type":        "string",
				"description": "Staff note attached to the cancellation.",
			},
			"restock":         map[string]any{"type": []string{"boolean", "string"}, "default": true},
			"refund":          map[string]any{"type": []string{"boolean", "string"}, "default": false},
			"notify_customer": map[string]any{"type": []string{"boolean", "string"}, "default": false},
			"order_id": map[string]any{
				"type":        "string",
				"description": "Order id used when the event payload carries none.",
			},
		},
	}
}
