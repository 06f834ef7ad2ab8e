package platform

import (
	"context"

	"github.com/flowstate-io/flowstate/internal/ir"
)

// itemHandler provisions one named-collection resource kind (zones,
// datasets, recipes, scenarios) against its REST endpoints.
type itemHandler struct {
	client *Client
	kind   string
}

func (h *itemHandler) Create(ctx context.Context, desired *ir.Resource) (map[string]any, error) {
	attrs, err := h.client.createItem(ctx, h.kind, requestBody(desired))
	if err != nil {
		return nil, err
	}
	return mergeAttrs(desired.Attributes, attrs), nil
}

func (h *itemHandler) Read(ctx context.Context, prior *ir.ResourceState) (map[string]any, error) {
	return h.client.getItem(ctx, h.kind, prior.Name)
}

func (h *itemHandler) Update(ctx context.Context, desired *ir.Resource, prior *ir.ResourceState) (map[string]any, error) {
	attrs, err := h.client.putItem(ctx, h.kind, desired.Name, requestBody(desired))
	if err != nil {
		return nil, err
	}
	return mergeAttrs(desired.Attributes, attrs), nil
}

func (h *itemHandler) Delete(ctx context.Context, prior *ir.ResourceState) error {
	return h.client.deleteItem(ctx, h.kind, prior.Name)
}

// singletonHandler manages a per-project singleton document (variables,
// default code environments), which the API models as a single replace-
// on-write object rather than a named collection.
type singletonHandler struct {
	client *Client
	kind   string
}

func (h *singletonHandler) Create(ctx context.Context, desired *ir.Resource) (map[string]any, error) {
	attrs, err := h.client.putSingleton(ctx, h.kind, desired.Attributes)
	if err != nil {
		return nil, err
	}
	return mergeAttrs(desired.Attributes, attrs), nil
}

func (h *singletonHandler) Read(ctx context.Context, prior *ir.ResourceState) (map[string]any, error) {
	return h.client.getSingleton(ctx, h.kind)
}

func (h *singletonHandler) Update(ctx context.Context, desired *ir.Resource, prior *ir.ResourceState) (map[string]any, error) {
	return h.Create(ctx, desired)
}

func (h *singletonHandler) Delete(ctx context.Context, prior *ir.ResourceState) error {
	return h.client.deleteSingleton(ctx, h.kind)
}

// requestBody builds the API payload for a resource: its attributes plus
// the name the collection keys on.
func requestBody(desired *ir.Resource) map[string]any {
	body := make(map[string]any, len(desired.Attributes)+1)
	for k, v := range desired.Attributes {
		body[k] = v
	}
	body["name"] = desired.Name
	return body
}

// mergeAttrs overlays the server's response on the desired attributes so
// server-assigned fields (ids, timestamps) are recorded in state without
// losing anything the server omits from its response.
func mergeAttrs(desired, server map[string]any) map[string]any {
	out := make(map[string]any, len(desired)+len(server))
	for k, v := range desired {
		out[k] = v
	}
	for k, v := range server {
		if k == "name" {
			continue
		}
		out[k] = v
	}
	return out
}
