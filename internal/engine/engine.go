package engine

import (
	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/provider"
	"github.com/flowstate-io/flowstate/internal/state"
)

// Version is reported by the CLI and recorded in plan metadata.
const Version = "0.4.1"

// Engine computes plans against the state store and applies them through
// the registered handlers. All operations are single-threaded: changes
// are planned and applied strictly one at a time.
type Engine struct {
	store      *state.Store
	registry   *provider.Registry
	projectKey string
}

func New(store *state.Store, registry *provider.Registry, projectKey string) *Engine {
	return &Engine{
		store:      store,
		registry:   registry,
		projectKey: projectKey,
	}
}

// loadState reads the persisted state and rejects state files that
// belong to a different project than the current configuration.
func (e *Engine) loadState() (*ir.State, error) {
	st, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	if st.ProjectKey != e.projectKey {
		return nil, &ProjectMismatchError{Expected: e.projectKey, Got: st.ProjectKey}
	}
	return st, nil
}
