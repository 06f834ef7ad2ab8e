package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registration binds a resource type to its handler and type-specific
// behavior. Priority is the plan priority class: lower classes apply
// first, so unrelated resource families can be staged (e.g. zones before
// datasets before scenarios).
type Registration struct {
	Type       string
	Priority   int
	Handler    Handler
	References ReferenceFunc
	Validate   ValidateFunc

	// Provides lists additional addresses a resource satisfies during
	// reference resolution. A foreign dataset occupies the dataset
	// namespace this way, so recipes consume local and cross-project
	// datasets by the same name.
	Provides ReferenceFunc
}

// UnknownTypeError is returned when a resource type has no registration.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown resource type: %s", e.Type)
}

// Registry maps resource types to their registrations. The engine never
// branches on resource type beyond a single registry lookup.
type Registry struct {
	mu   sync.RWMutex
	regs map[string]*Registration
}

func NewRegistry() *Registry {
	return &Registry{
		regs: make(map[string]*Registration),
	}
}

// Register adds a registration. Registering the same type twice is a
// programming error and fails.
func (r *Registry) Register(reg Registration) error {
	if reg.Type == "" {
		return fmt.Errorf("registration must have a non-empty type")
	}
	if reg.Handler == nil {
		return fmt.Errorf("registration for %s must have a handler", reg.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.regs[reg.Type]; exists {
		return fmt.Errorf("resource type already registered: %s", reg.Type)
	}
	r.regs[reg.Type] = &reg
	return nil
}

// Get returns the registration for a resource type.
func (r *Registry) Get(resourceType string) (*Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.regs[resourceType]
	if !ok {
		return nil, &UnknownTypeError{Type: resourceType}
	}
	return reg, nil
}

// Types returns the registered resource types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.regs))
	for t := range r.regs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
