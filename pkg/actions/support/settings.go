// Package support holds helpers shared by the action handlers.
package support

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/shopflow/pkg/models"
)

// Settings returns the flattened settings of node, never nil.
func Settings(node *models.Node) map[string]any {
	if node == nil {
		return map[string]any{}
	}

	return node.FlatSettings()
}

// String returns the trimmed string form of settings[key].
func String(settings map[string]any, key string) string {
	switch v := settings[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// StringOr returns String(settings, key) or fallback when it is empty.
func StringOr(settings map[string]any, key, fallback string) string {
	if value := String(settings, key); value != "" {
		return value
	}

	return fallback
}

// Bool reads a flag that editors may store as a boolean or as text.
func Bool(settings map[string]any, key string, fallback bool) bool {
	switch v := settings[key].(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fallback
		}

		return parsed
	default:
		return fallback
	}
}

// StringMap reads a map of strings such as request headers.
func StringMap(settings map[string]any, key string) map[string]string {
	out := map[string]string{}

	switch v := settings[key].(type) {
	case map[string]string:
		for name, value := range v {
			out[name] = value
		}
	case map[string]any:
		for name, value := range v {
			out[name] = fmt.Sprint(value)
		}
	}

	return out
}
