// Package loader instantiates plugins after the approval validator has
// approved them. Native plugins come from an explicit factory registry
// populated at link time; script plugins run in a restricted Lua sandbox.
// The loader never decides policy itself.
package loader

import (
	"fmt"
	"sort"
	"sync"
)

// Plugin is the contract native plugins implement.
type Plugin interface {
	// Activate starts the plugin with its capability-scoped context.
	Activate(ctx *Context) error

	// Deactivate stops the plugin and releases its resources.
	Deactivate() error
}

// Factory constructs a native plugin instance.
type Factory func() (Plugin, error)

// Registry maps plugin identifiers to native factories. Factories are
// registered explicitly at build time; there is no name-based reflection
// lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for a plugin identifier.
func (r *Registry) Register(pluginID string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[pluginID]; exists {
		return fmt.Errorf("%w: %s", ErrFactoryExists, pluginID)
	}
	r.factories[pluginID] = f
	return nil
}

// Lookup returns the factory for a plugin identifier.
func (r *Registry) Lookup(pluginID string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[pluginID]
	return f, ok
}

// Identifiers returns the registered identifiers, sorted.
func (r *Registry) Identifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
