package tags

import (
	"context"
	"strings"

	"github.com/dukex/shopflow/pkg/actions/support"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/protocol"
)

// resourceByEventName maps event name fragments to resources, checked in order.
var resourceByEventName = []struct {
	fragment string
	resource support.ResourceType
}{
	{fragment: "PRODUCT", resource: support.ResourceProduct},
	{fragment: "ORDER", resource: support.ResourceOrder},
	{fragment: "CUSTOMER", resource: support.ResourceCustomer},
}

// ResolveResource picks the resource a generic tag action applies to from the event name.
func ResolveResource(eventName string) (support.ResourceType, bool) {
	upper := strings.ToUpper(eventName)

	for _, entry := range resourceByEventName {
		if strings.Contains(upper, entry.fragment) {
			return entry.resource, true
		}
	}

	return "", false
}

// GenericAction delegates to the tag action of the resource named by the triggering event.
type GenericAction struct {
	operation Operation
	variants  map[support.ResourceType]*Action
}

func NewGenericAction(operation Operation, clients protocol.ClientProvider) *GenericAction {
	variants := make(map[support.ResourceType]*Action, len(resourceByEventName))
	for _, entry := range resourceByEventName {
		variants[entry.resource] = NewAction(entry.resource, operation, clients)
	}

	return &GenericAction{operation: operation, variants: variants}
}

func (g *GenericAction) Operation() Operation {
	return g.operation
}

func (g *GenericAction) Handle(ctx context.Context, node *models.Node, payload map[string]any, execCtx *protocol.ExecutionContext) error {
	resource, ok := ResolveResource(execCtx.EventName())
	if !ok {
		execCtx.Log.Error(ctx, support.NodeID(node), "Could not determine resource type from event", map[string]any{
			"event": execCtx.EventName(),
		})

		return nil
	}

	return g.variants[resource].Handle(ctx, node, payload, execCtx)
}

func (g *GenericAction) Schema() map[string]any {
	return Schema("")
}
