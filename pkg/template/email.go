package template

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxEmailSearchDepth is how many nesting levels FindEmail inspects. The top level is depth 1.
const MaxEmailSearchDepth = 3

const emailKey = "email"

var validate = validator.New()

// IsEmail reports whether s looks like a valid email address.
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	return validate.Var(s, "required,email") == nil
}

// FindEmail searches payload breadth first for a key named "email" holding a valid address.
// The search stops after MaxEmailSearchDepth levels and returns "" when nothing is found.
func FindEmail(payload map[string]any) string {
	level := []any{payload}

	for depth := 1; depth <= MaxEmailSearchDepth && len(level) > 0; depth++ {
		var next []any

		for _, item := range level {
			switch v := item.(type) {
			case map[string]any:
				if address, ok := v[emailKey].(string); ok && IsEmail(address) {
					return strings.TrimSpace(address)
				}

				keys := make([]string, 0, len(v))
				for key := range v {
					keys = append(keys, key)
				}

				sort.Strings(keys)

				for _, key := range keys {
					next = appendContainer(next, v[key])
				}
			case []any:
				for _, element := range v {
					next = appendContainer(next, element)
				}
			}
		}

		level = next
	}

	return ""
}

func appendContainer(level []any, value any) []any {
	switch v := value.(type) {
	case map[string]any:
		return append(level, v)
	case []any:
		return append(level, v)
	case []map[string]any:
		for _, item := range v {
			level = append(level, item)
		}
	}

	return level
}
