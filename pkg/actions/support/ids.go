package support

import (
	"fmt"
	"strings"

	"github.com/dukex/shopflow/pkg/models"
)

// GIDScheme prefixes global identifiers used by the commerce graph API.
const GIDScheme = "gid://shopify"

// ResourceType names a taggable commerce resource.
type ResourceType string

const (
	ResourceCustomer ResourceType = "customer"
	ResourceOrder    ResourceType = "order"
	ResourceProduct  ResourceType = "product"
)

// GraphType returns the type name used inside global identifiers.
func (r ResourceType) GraphType() string {
	switch r {
	case ResourceCustomer:
		return "Customer"
	case ResourceOrder:
		return "Order"
	case ResourceProduct:
		return "Product"
	default:
		return strings.ToUpper(string(r[:1])) + string(r[1:])
	}
}

// NumericID reduces a global identifier such as gid://shopify/Order/123 to 123.
// Plain ids are returned trimmed.
func NumericID(id string) string {
	id = strings.TrimSpace(id)

	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}

	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}

	return id
}

// ToGID builds the global identifier of a resource. Existing global identifiers are kept.
func ToGID(resource ResourceType, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}

	if strings.HasPrefix(id, "gid://") {
		return id
	}

	return fmt.Sprintf("%s/%s/%s", GIDScheme, resource.GraphType(), NumericID(id))
}

// ResolveResourceID finds the id of resource for an action. The nested resource object of
// the payload wins, then flat id fields of the payload, then the node settings.
func ResolveResourceID(payload map[string]any, resource ResourceType, settings map[string]any) string {
	name := string(resource)
	idKey := name + "_id"

	if nested, ok := payload[name].(map[string]any); ok {
		if id := idString(nested["id"]); id != "" {
			return id
		}
	}

	if id := idString(payload[idKey]); id != "" {
		return id
	}

	if id := idString(payload["id"]); id != "" {
		return id
	}

	for _, key := range []string{idKey, "id"} {
		if id := idString(settings[key]); id != "" && !IsUnresolved(id) {
			return id
		}
	}

	return ""
}

func idString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// IsUnresolved reports whether a settings value is an unresolved template token.
func IsUnresolved(value string) bool {
	return strings.Contains(value, "{{") && strings.Contains(value, "}}")
}

// NodeID returns the node id or "" for a nil node.
func NodeID(node *models.Node) string {
	if node == nil {
		return ""
	}

	return node.ID
}
