// Package registry maps action keys to their handlers.
package registry

import (
	"log/slog"
	"sort"

	"github.com/dukex/shopflow/pkg/protocol"
)

// Registry is populated once at start and read without locks afterwards.
type Registry struct {
	logger   *slog.Logger
	actions  map[string]protocol.Action
	variants map[string]string
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:   log.With("module", "registry"),
		actions:  make(map[string]protocol.Action),
		variants: make(map[string]string),
	}
}

// RegisterAction binds key to action, replacing any previous binding.
func (r *Registry) RegisterAction(key string, action protocol.Action) {
	r.register(key, VariantCustom, action)
}

func (r *Registry) register(key, variant string, action protocol.Action) {
	if _, exists := r.actions[key]; exists {
		r.logger.Warn("Replacing registered action", "key", key)
	}

	r.actions[key] = action
	r.variants[key] = variant
}

// GetAction returns the handler bound to key, or nil when the key is unknown.
func (r *Registry) GetAction(key string) protocol.Action {
	return r.actions[key]
}

// Variant returns the variant name of the handler bound to key.
func (r *Registry) Variant(key string) string {
	return r.variants[key]
}

// Keys returns the registered keys sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.actions))
	for key := range r.actions {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Schemas returns the settings schema of every registered action.
func (r *Registry) Schemas() map[string]map[string]any {
	schemas := make(map[string]map[string]any, len(r.actions))
	for key, action := range r.actions {
		schemas[key] = action.Schema()
	}

	return schemas
}
