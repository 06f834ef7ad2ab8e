// Package null provides an in-memory resource type with no remote side
// effects, useful for exercising the plan/apply machinery in tests and
// demos.
package null

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/provider"
)

// Handler stores resources in memory. Attributes echo back on create and
// update, with a synthetic id added.
type Handler struct {
	mu        sync.Mutex
	resources map[string]map[string]any
}

func NewHandler() *Handler {
	return &Handler{resources: make(map[string]map[string]any)}
}

func (h *Handler) Create(ctx context.Context, desired *ir.Resource) (map[string]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	attrs := make(map[string]any, len(desired.Attributes)+1)
	for k, v := range desired.Attributes {
		attrs[k] = v
	}
	attrs["id"] = fmt.Sprintf("null-%s", desired.Name)
	h.resources[desired.Address()] = attrs
	return attrs, nil
}

func (h *Handler) Read(ctx context.Context, prior *ir.ResourceState) (map[string]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	attrs, ok := h.resources[prior.Address]
	if !ok {
		return nil, nil
	}
	return attrs, nil
}

func (h *Handler) Update(ctx context.Context, desired *ir.Resource, prior *ir.ResourceState) (map[string]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	attrs := make(map[string]any, len(desired.Attributes)+1)
	for k, v := range desired.Attributes {
		attrs[k] = v
	}
	if id, ok := prior.Attributes["id"]; ok {
		attrs["id"] = id
	} else {
		attrs["id"] = fmt.Sprintf("null-%s", desired.Name)
	}
	h.resources[desired.Address()] = attrs
	return attrs, nil
}

func (h *Handler) Delete(ctx context.Context, prior *ir.ResourceState) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.resources, prior.Address)
	return nil
}

// Register wires the null type into the registry. References come from
// the optional refs attribute, a list of resource addresses.
func Register(reg *provider.Registry) error {
	return reg.Register(provider.Registration{
		Type:       "null",
		Handler:    NewHandler(),
		References: references,
	})
}

func references(r *ir.Resource) []string {
	list, ok := r.Attributes["refs"].([]any)
	if !ok {
		return nil
	}
	var refs []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			refs = append(refs, s)
		}
	}
	return refs
}
