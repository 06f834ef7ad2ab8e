package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/provider"
	"github.com/flowstate-io/flowstate/internal/state"
)

// fakeHandler is an in-memory handler that records the operations it
// performs and can be told to fail on a specific address.
type fakeHandler struct {
	mu   sync.Mutex
	live map[string]map[string]any
	ops  []string

	failOn string
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{live: make(map[string]map[string]any)}
}

func (h *fakeHandler) record(op, addr string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op+" "+addr)
	if h.failOn == addr {
		return fmt.Errorf("injected failure on %s", addr)
	}
	return nil
}

func (h *fakeHandler) operations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.ops...)
}

func (h *fakeHandler) setLive(addr string, attrs map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live[addr] = attrs
}

func (h *fakeHandler) Create(ctx context.Context, desired *ir.Resource) (map[string]any, error) {
	if err := h.record("create", desired.Address()); err != nil {
		return nil, err
	}
	h.setLive(desired.Address(), desired.Attributes)
	return desired.Attributes, nil
}

func (h *fakeHandler) Read(ctx context.Context, prior *ir.ResourceState) (map[string]any, error) {
	if err := h.record("read", prior.Address); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	attrs, ok := h.live[prior.Address]
	if !ok {
		return nil, nil
	}
	return attrs, nil
}

func (h *fakeHandler) Update(ctx context.Context, desired *ir.Resource, prior *ir.ResourceState) (map[string]any, error) {
	if err := h.record("update", desired.Address()); err != nil {
		return nil, err
	}
	h.setLive(desired.Address(), desired.Attributes)
	return desired.Attributes, nil
}

func (h *fakeHandler) Delete(ctx context.Context, prior *ir.ResourceState) error {
	if err := h.record("delete", prior.Address); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.live, prior.Address)
	return nil
}

// typeSpec describes one fake resource type for a test engine.
type typeSpec struct {
	name       string
	priority   int
	references provider.ReferenceFunc
	validate   provider.ValidateFunc
	provides   provider.ReferenceFunc
}

// newTestEngine wires an engine with a temp-dir state store and one fake
// handler shared by every registered type.
func newTestEngine(t *testing.T, project string, types ...typeSpec) (*Engine, *state.Store, *fakeHandler) {
	t.Helper()

	handler := newFakeHandler()
	registry := provider.NewRegistry()
	for _, spec := range types {
		require.NoError(t, registry.Register(provider.Registration{
			Type:       spec.name,
			Priority:   spec.priority,
			Handler:    handler,
			References: spec.references,
			Validate:   spec.validate,
			Provides:   spec.provides,
		}))
	}

	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"), project)
	return New(store, registry, project), store, handler
}

func res(typ, name string, attrs map[string]any, deps ...string) *ir.Resource {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &ir.Resource{Type: typ, Name: name, Attributes: attrs, DependsOn: deps}
}
