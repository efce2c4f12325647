// Package template provides variable resolution of {{ path.to.value }} tokens against event payloads.
package template

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// MissMode selects what happens to a token whose path has no value in the payload.
type MissMode int

const (
	// LeaveTokenOnMiss keeps the original {{ ... }} token in the output.
	LeaveTokenOnMiss MissMode = iota
	// EmptyOnMiss replaces the token with an empty string.
	EmptyOnMiss
)

// MaxDepth bounds ResolveDeep recursion. Values nested deeper are returned unresolved.
const MaxDepth = 50

var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// Resolve replaces every {{ key.path }} token in tmpl with the value found at key.path in payload.
// Substituted values are never scanned for tokens again.
func Resolve(tmpl string, payload map[string]any, mode MissMode) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}

	return NewDocument(payload).Resolve(tmpl, mode)
}

// Resolve is Resolve against the document's payload.
func (d *Document) Resolve(tmpl string, mode MissMode) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}

	return tokenPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		path := tokenPattern.FindStringSubmatch(token)[1]

		value, ok := d.Lookup(path)
		if !ok {
			if mode == EmptyOnMiss {
				return ""
			}

			return token
		}

		return Stringify(value)
	})
}

// ResolveDeep applies Resolve to every string entry of a possibly nested settings map.
// Keys are kept, non-string and non-map values pass through unchanged.
func ResolveDeep(settings map[string]any, payload map[string]any, mode MissMode) map[string]any {
	if settings == nil {
		return map[string]any{}
	}

	resolved, _ := resolveValue(settings, NewDocument(payload), mode, 0).(map[string]any)

	return resolved
}

func resolveValue(value any, doc *Document, mode MissMode, depth int) any {
	if depth > MaxDepth {
		return value
	}

	switch v := value.(type) {
	case string:
		return doc.Resolve(v, mode)
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, item := range v {
			resolved[key] = resolveValue(item, doc, mode, depth+1)
		}

		return resolved
	case map[string]string:
		resolved := make(map[string]string, len(v))
		for key, item := range v {
			resolved[key] = doc.Resolve(item, mode)
		}

		return resolved
	default:
		return value
	}
}

// Stringify renders a payload value the way it is substituted into a template.
// Maps and sequences become compact JSON, booleans become true/false.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(value); err != nil {
		return ""
	}

	return strings.TrimSuffix(buf.String(), "\n")
}
