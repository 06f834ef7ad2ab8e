package provider

import (
	"context"

	"github.com/flowstate-io/flowstate/internal/ir"
)

// Handler performs remote CRUD operations for one resource type.
//
// Handlers are the engine's only contact with the remote system. They
// translate a single resource's desired attributes into API calls and
// return the attribute snapshot that should be recorded in state. All
// methods block on network I/O; request-level timeouts belong to the
// handler's transport, not the engine.
type Handler interface {
	// Create provisions the resource and returns its stored attributes.
	Create(ctx context.Context, desired *ir.Resource) (map[string]any, error)

	// Read fetches the live attributes for a tracked resource. A nil map
	// with a nil error means the resource no longer exists remotely.
	Read(ctx context.Context, prior *ir.ResourceState) (map[string]any, error)

	// Update converges the resource to the desired attributes and returns
	// the stored attributes.
	Update(ctx context.Context, desired *ir.Resource, prior *ir.ResourceState) (map[string]any, error)

	// Delete removes the resource.
	Delete(ctx context.Context, prior *ir.ResourceState) error
}

// ReferenceFunc extracts implicit reference addresses from a resource's
// type-specific attributes (e.g. recipe inputs resolve to dataset
// addresses). Supplied per type at registration; the graph builder only
// consumes the union of explicit and implicit references.
type ReferenceFunc func(r *ir.Resource) []string

// ValidateFunc checks a single resource's attributes before planning.
// It returns a list of error messages; empty means valid.
type ValidateFunc func(r *ir.Resource) []string
