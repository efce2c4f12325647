package template

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/itchyny/gojq"
)

var (
	getPathOnce sync.Once
	getPathCode *gojq.Code
	getPathErr  error
)

func getPathProgram() (*gojq.Code, error) {
	getPathOnce.Do(func() {
		query, err := gojq.Parse("getpath($path)")
		if err != nil {
			getPathErr = err

			return
		}

		getPathCode, getPathErr = gojq.Compile(query, gojq.WithVariables([]string{"$path"}))
	})

	return getPathCode, getPathErr
}

// Document is a payload converted once into the value types path lookups run on.
type Document struct {
	root any
}

// NewDocument normalizes payload for repeated lookups.
func NewDocument(payload map[string]any) *Document {
	if payload == nil {
		return &Document{}
	}

	return &Document{root: normalize(payload)}
}

// Lookup returns the value at the dot separated path in payload.
// Numeric segments index sequences. A nil value counts as not found.
func Lookup(payload map[string]any, path string) (any, bool) {
	if strings.TrimSpace(path) == "" || payload == nil {
		return nil, false
	}

	return NewDocument(payload).Lookup(path)
}

// Lookup behaves like the package level Lookup on the document's payload.
func (d *Document) Lookup(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" || d == nil || d.root == nil {
		return nil, false
	}

	segments := strings.Split(path, ".")

	value, ok := d.getPath(typedSegments(segments))
	if !ok {
		// a numeric segment may also be a literal map key
		value, ok = d.getPath(stringSegments(segments))
	}

	return value, ok
}

func (d *Document) getPath(path []any) (any, bool) {
	code, err := getPathProgram()
	if err != nil {
		return nil, false
	}

	iter := code.Run(d.root, path)

	value, ok := iter.Next()
	if !ok {
		return nil, false
	}

	if _, isErr := value.(error); isErr {
		return nil, false
	}

	if value == nil {
		return nil, false
	}

	return value, true
}

func typedSegments(segments []string) []any {
	path := make([]any, len(segments))

	for i, segment := range segments {
		if index, err := strconv.Atoi(segment); err == nil {
			path[i] = index
		} else {
			path[i] = segment
		}
	}

	return path
}

func stringSegments(segments []string) []any {
	path := make([]any, len(segments))
	for i, segment := range segments {
		path[i] = segment
	}

	return path
}

// normalize converts a payload value into the types gojq accepts.
func normalize(value any) any {
	switch v := value.(type) {
	case nil, bool, string, int, float64:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return float64(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}

		f, _ := v.Float64()

		return f
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalize(item)
		}

		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = item
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}

		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}

		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}

		return out
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}

	return decoded
}
