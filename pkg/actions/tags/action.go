// Package tags adds and removes tags on customers, orders and products.
package tags

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukex/shopflow/pkg/actions/support"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/protocol"
	"github.com/dukex/shopflow/pkg/template"
)

// Operation is the tag change an action applies.
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationRemove Operation = "remove"
)

const (
	mutationTagsAdd = `mutation tagsAdd($id: ID!, $tags: [String!]!) {
  tagsAdd(id: $id, tags: $tags) { userErrors { field message } }
}`
	mutationTagsRemove = `mutation tagsRemove($id: ID!, $tags: [String!]!) {
  tagsRemove(id: $id, tags: $tags) { userErrors { field message } }
}`
	queryTagsFormat = `query resourceTags($id: ID!) { %s(id: $id) { id tags } }`
)

// Action mutates the tags of one resource type.
type Action struct {
	resource  support.ResourceType
	operation Operation
	clients   protocol.ClientProvider
}

func NewAction(resource support.ResourceType, operation Operation, clients protocol.ClientProvider) *Action {
	return &Action{resource: resource, operation: operation, clients: clients}
}

func (a *Action) Resource() support.ResourceType {
	return a.resource
}

func (a *Action) Operation() Operation {
	return a.operation
}

func (a *Action) Handle(ctx context.Context, node *models.Node, payload map[string]any, execCtx *protocol.ExecutionContext) error {
	settings := support.Settings(node)
	nodeID := support.NodeID(node)
	resource := string(a.resource)

	id := support.ResolveResourceID(payload, a.resource, settings)
	if id == "" {
		execCtx.Log.Warning(ctx, nodeID, fmt.Sprintf("No %s id found. Skipping tag update.", resource), nil)

		return nil
	}

	requested := requestedTags(settings)
	if len(requested) == 0 {
		execCtx.Log.Warning(ctx, nodeID, "No tags configured. Skipping tag update.", map[string]any{"id": id})

		return nil
	}

	client, err := a.clients.ClientFor(ctx, execCtx.ShopDomain())
	if err != nil {
		return protocol.NewContextError("commerce client for shop "+execCtx.ShopDomain(), err)
	}

	gid := support.ToGID(a.resource, id)

	current, ok := a.fetchTags(ctx, client, gid, nodeID, execCtx)
	if !ok {
		return nil
	}

	var next, changed []string
	if a.operation == OperationAdd {
		next = support.UnionTags(current, requested)
		changed = support.DifferenceTags(requested, current)
	} else {
		next = support.DifferenceTags(current, requested)
		changed = support.IntersectTags(requested, current)
	}

	if support.SameTags(current, next) {
		execCtx.Log.Info(ctx, nodeID, a.skipMessage(), map[string]any{"id": gid, "tags": requested})

		return nil
	}

	resp, err := a.write(ctx, client, gid, changed, next)
	if err != nil {
		execCtx.Log.Error(ctx, nodeID, fmt.Sprintf("Failed to update tags on %s", resource), map[string]any{
			"id":    gid,
			"error": err.Error(),
		})

		return nil
	}

	if errs := userErrors(resp, a.operation); len(errs) > 0 {
		execCtx.Log.Error(ctx, nodeID, fmt.Sprintf("Failed to update tags on %s", resource), map[string]any{
			"id":     gid,
			"errors": errs,
		})

		return nil
	}

	execCtx.Log.Info(ctx, nodeID, a.successMessage(), map[string]any{"id": gid, "tags": changed})

	return nil
}

func (a *Action) fetchTags(ctx context.Context, client protocol.CommerceClient, gid, nodeID string, execCtx *protocol.ExecutionContext) ([]string, bool) {
	resource := string(a.resource)

	resp, err := client.GraphCall(ctx, fmt.Sprintf(queryTagsFormat, resource), map[string]any{"id": gid})
	if err != nil {
		execCtx.Log.Error(ctx, nodeID, fmt.Sprintf("Failed to fetch tags of %s", resource), map[string]any{
			"id":    gid,
			"error": err.Error(),
		})

		return nil, false
	}

	if resp.HasErrors() {
		execCtx.Log.Error(ctx, nodeID, fmt.Sprintf("Failed to fetch tags of %s", resource), map[string]any{
			"id":     gid,
			"errors": resp.Errors,
		})

		return nil, false
	}

	value, _ := template.Lookup(resp.Body, resource+".tags")

	return support.ParseTags(value), true
}

func (a *Action) write(ctx context.Context, client protocol.CommerceClient, gid string, changed, next []string) (*protocol.CommerceResponse, error) {
	if a.resource == support.ResourceOrder {
		numeric := support.NumericID(gid)

		return client.RestCall(ctx, http.MethodPut, "orders/"+numeric+".json", map[string]any{
			"order": map[string]any{
				"id":   numeric,
				"tags": support.FormatTags(next),
			},
		})
	}

	mutation := mutationTagsAdd
	if a.operation == OperationRemove {
		mutation = mutationTagsRemove
	}

	return client.GraphCall(ctx, mutation, map[string]any{"id": gid, "tags": changed})
}

func (a *Action) successMessage() string {
	if a.operation == OperationAdd {
		return "Successfully added tags to " + string(a.resource)
	}

	return "Successfully removed tags from " + string(a.resource)
}

func (a *Action) skipMessage() string {
	if a.operation == OperationAdd {
		return "Tags already present on " + string(a.resource) + ". Skipping update."
	}

	return "Tags not found on " + string(a.resource) + ". Skipping update."
}

func (a *Action) Schema() map[string]any {
	return Schema(a.resource)
}

func requestedTags(settings map[string]any) []string {
	if tags := support.ParseTags(settings["tags"]); len(tags) > 0 {
		return tags
	}

	return support.ParseTags(settings["tag"])
}

// userErrors collects API errors and mutation user errors of a write call.
func userErrors(resp *protocol.CommerceResponse, operation Operation) []string {
	if resp == nil {
		return nil
	}

	errs := append([]string{}, resp.Errors...)

	field := "tagsAdd"
	if operation == OperationRemove {
		field = "tagsRemove"
	}

	list, _ := template.Lookup(resp.Body, field+".userErrors")

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

// Schema describes the settings of the tag actions.
func Schema(resource support.ResourceType) map[string]any {
	properties := map[string]any{
		"tags": map[string]any{
			"type":        []string{"string", "array"},
			"description": "Comma separated tags, or a list of tags. Supports {{ }} variables.",
		},
		"tag": map[string]any{
			"type":        "string",
			"description": "A single tag. Used when tags is empty.",
		},
		"id": map[string]any{
			"type":        "string",
			"description": "Resource id used when the event payload carries none.",
		},
	}

	if resource != "" {
		properties[string(resource)+"_id"] = map[string]any{
			"type":        "string",
			"description": "The " + string(resource) + " id used when the event payload carries none.",
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"anyOf": []any{
			map[string]any{"required": []string{"tags"}},
			map[string]any{"required": []string{"tag"}},
		},
	}
}
