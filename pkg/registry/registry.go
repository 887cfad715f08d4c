package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/sluice/pkg/domain"
)

// Factory builds a component of one class from its declaration parameters.
type Factory func(name string, params map[string]any) (*domain.Component, error)

// Registry manages the available component classes. Knowledge bases register
// their classes here and loaders resolve class names against it.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]Factory),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the shared registry that knowledge-base packages populate
// from their init functions. Importing a knowledge base for effect is enough
// to make its classes buildable:
//
//	import _ "github.com/aretw0/sluice/pkg/kb/rbd"
func Default() *Registry {
	return defaultRegistry
}

// Register adds a component class to the registry.
// If a class with the same name exists, it is overwritten.
func (r *Registry) Register(class string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[class] = fn
}

// Build looks up a class by name and builds a component from it.
// Returns an error if the class is not found.
func (r *Registry) Build(class, name string, params map[string]any) (*domain.Component, error) {
	r.mu.RLock()
	fn, ok := r.classes[class]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("component class not found: %s", class)
	}

	comp, err := fn(name, params)
	if err != nil {
		return nil, fmt.Errorf("class %s: component %s: %w", class, name, err)
	}
	if comp.Class == "" {
		comp.Class = class
	}
	return comp, nil
}

// Has reports whether a class is registered.
func (r *Registry) Has(class string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[class]
	return ok
}

// Classes returns the registered class names, sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.classes))
	for class := range r.classes {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}
