package activity

import (
	"sort"
	"sync"
)

// Registration binds a component name to its factory.
type Registration struct {
	Name string
	New  Factory
}

// Registry maps intent actions to the components able to handle them
// and indexes every component by name for explicit launches.
//
// Registration is idempotent per (action, name): re-registering the
// same pair replaces the factory in place, preserving the original
// position. Resolution preserves registration order.
type Registry struct {
	mu         sync.RWMutex
	actions    map[string][]Registration // Protected by mu
	components map[string]Registration   // Protected by mu
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions:    make(map[string][]Registration),
		components: make(map[string]Registration),
	}
}

// Register announces that a component handles an action. The component
// also becomes launchable by name.
func (r *Registry) Register(action string, reg Registration) {
	if action == "" || reg.Name == "" || reg.New == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.components[reg.Name] = reg

	handlers := r.actions[action]
	for i, existing := range handlers {
		if existing.Name == reg.Name {
			handlers[i] = reg
			return
		}
	}
	r.actions[action] = append(handlers, reg)
}

// RegisterComponent makes a component launchable by name without
// binding it to any action.
func (r *Registry) RegisterComponent(reg Registration) {
	if reg.Name == "" || reg.New == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[reg.Name] = reg
}

// Unregister removes a component from the name index and from every
// action it handles. Used when a package is uninstalled.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.components, name)
	for action, handlers := range r.actions {
		kept := handlers[:0]
		for _, reg := range handlers {
			if reg.Name != name {
				kept = append(kept, reg)
			}
		}
		if len(kept) == 0 {
			delete(r.actions, action)
		} else {
			r.actions[action] = kept
		}
	}
}

// Resolve returns the components handling an action, in registration
// order. The slice is a copy; callers may keep it.
func (r *Registry) Resolve(action string) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers := r.actions[action]
	if len(handlers) == 0 {
		return nil
	}
	out := make([]Registration, len(handlers))
	copy(out, handlers)
	return out
}

// Component looks up a registration by name.
func (r *Registry) Component(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.components[name]
	return reg, ok
}

// Actions returns all known actions, sorted.
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.actions))
	for action := range r.actions {
		out = append(out, action)
	}
	sort.Strings(out)
	return out
}

// Components returns all registered component names, sorted.
func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.components))
	for name := range r.components {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Handlers reports how many components handle an action.
func (r *Registry) Handlers(action string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions[action])
}
