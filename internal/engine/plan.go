package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/logging"
)

// PlanOptions control a planning cycle.
type PlanOptions struct {
	// Destroy plans deletes for everything in state, ignoring desired.
	Destroy bool
	// Refresh re-reads live attributes for tracked resources before
	// diffing, so out-of-band changes are not silently overwritten.
	Refresh bool
}

// Plan compares the desired resources against the state store and
// produces an ordered list of changes. The result snapshots the state's
// lineage, serial, and digest for later staleness checks.
func (e *Engine) Plan(ctx context.Context, desired []*ir.Resource, opts PlanOptions) (*ir.Plan, error) {
	var st *ir.State

	if opts.Refresh {
		// Refresh may write state, so it runs under the lock.
		err := e.store.WithLock(func() error {
			loaded, err := e.loadState()
			if err != nil {
				return err
			}
			changes, refreshed, err := e.driftState(ctx, loaded)
			if err != nil {
				return err
			}
			if len(changes) > 0 {
				if err := e.store.Save(refreshed); err != nil {
					return err
				}
			}
			st = refreshed
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		loaded, err := e.loadState()
		if err != nil {
			return nil, err
		}
		st = loaded
	}

	if opts.Destroy {
		return e.destroyPlan(st, opts)
	}
	return e.diffPlan(desired, st, opts)
}

func (e *Engine) diffPlan(desired []*ir.Resource, st *ir.State, opts PlanOptions) (*ir.Plan, error) {
	logging.L().Debug().
		Int("desired", len(desired)).
		Int("state", len(st.Resources)).
		Msg("computing plan")

	desiredByAddr := make(map[string]*ir.Resource, len(desired))
	var validationErrs []string
	for _, r := range desired {
		addr := r.Address()
		if _, dup := desiredByAddr[addr]; dup {
			return nil, &DuplicateAddressError{Address: addr}
		}
		reg, err := e.registry.Get(r.Type)
		if err != nil {
			return nil, err
		}
		desiredByAddr[addr] = r

		if reg.Validate != nil {
			for _, msg := range reg.Validate(r) {
				validationErrs = append(validationErrs, fmt.Sprintf("%s: %s", addr, msg))
			}
		}
	}
	if len(validationErrs) > 0 {
		return nil, &ValidationError{Errors: validationErrs}
	}

	// Some types occupy another type's namespace (foreign datasets answer
	// to dataset addresses). Collect those aliases after all real
	// addresses are known so collisions in either direction are caught.
	aliasTo := make(map[string]string)
	for _, r := range desired {
		reg, err := e.registry.Get(r.Type)
		if err != nil {
			return nil, err
		}
		if reg.Provides == nil {
			continue
		}
		addr := r.Address()
		for _, alias := range reg.Provides(r) {
			if alias == "" || alias == addr {
				continue
			}
			if _, ok := desiredByAddr[alias]; ok {
				return nil, &DuplicateAddressError{Address: alias}
			}
			if _, ok := aliasTo[alias]; ok {
				return nil, &DuplicateAddressError{Address: alias}
			}
			aliasTo[alias] = addr
		}
	}

	// Resolve the full reference set per resource: explicit depends_on
	// plus type-specific implicit references, each mapped through the
	// alias table. Every reference must name a resource in the desired
	// set or in state.
	depsByAddr := make(map[string][]string, len(desired))
	nodes := make([]GraphNode, 0, len(desired))
	for _, r := range desired {
		addr := r.Address()
		reg, err := e.registry.Get(r.Type)
		if err != nil {
			return nil, err
		}

		raw := append([]string{}, r.DependsOn...)
		if reg.References != nil {
			raw = append(raw, reg.References(r)...)
		}

		refs := make([]string, 0, len(raw))
		for _, ref := range raw {
			if target, ok := aliasTo[ref]; ok {
				ref = target
			}
			refs = append(refs, ref)
		}
		refs = dedupeSorted(refs)

		for _, ref := range refs {
			if _, ok := desiredByAddr[ref]; ok {
				continue
			}
			if _, ok := st.Resources[ref]; ok {
				continue
			}
			return nil, &UnresolvedReferenceError{Address: addr, Reference: ref}
		}

		depsByAddr[addr] = refs
		nodes = append(nodes, GraphNode{
			Address:  addr,
			Deps:     refs,
			Priority: reg.Priority,
		})
	}

	dag, err := BuildDAG(nodes)
	if err != nil {
		return nil, err
	}

	var changes []*ir.ResourceChange
	for _, addr := range dag.Order() {
		r := desiredByAddr[addr]
		planned, err := normalizeAttributes(r.Attributes, e.projectKey)
		if err != nil {
			return nil, fmt.Errorf("invalid attributes for %s: %w", addr, err)
		}

		change := &ir.ResourceChange{
			Address:      addr,
			Type:         r.Type,
			Name:         r.Name,
			After:        planned,
			Dependencies: depsByAddr[addr],
		}

		prior, exists := st.Resources[addr]
		if !exists {
			change.Action = ir.ActionCreate
			changes = append(changes, change)
			continue
		}

		priorNorm, err := normalizeAttributes(prior.Attributes, e.projectKey)
		if err != nil {
			return nil, fmt.Errorf("invalid state attributes for %s: %w", addr, err)
		}
		change.Before = prior.Attributes

		if diff := diffDesired(priorNorm, planned); len(diff) > 0 {
			change.Action = ir.ActionUpdate
			change.Diff = diff
		} else {
			change.Action = ir.ActionNoOp
		}
		changes = append(changes, change)
	}

	// Resources tracked in state but absent from desired are deleted, in
	// reverse dependency order, after all creates and updates.
	var toDelete []string
	for _, addr := range st.Addresses() {
		if _, ok := desiredByAddr[addr]; !ok {
			toDelete = append(toDelete, addr)
		}
	}
	deletes, err := e.deleteChanges(st, toDelete)
	if err != nil {
		return nil, err
	}
	changes = append(changes, deletes...)

	return &ir.Plan{
		Metadata: e.planMetadata(st, desired, opts),
		Changes:  changes,
	}, nil
}

// destroyPlan synthesizes a plan consisting solely of deletes for every
// address currently in state.
func (e *Engine) destroyPlan(st *ir.State, opts PlanOptions) (*ir.Plan, error) {
	deletes, err := e.deleteChanges(st, st.Addresses())
	if err != nil {
		return nil, err
	}
	return &ir.Plan{
		Metadata: e.planMetadata(st, nil, opts),
		Changes:  deletes,
	}, nil
}

// deleteChanges builds delete changes for the given addresses in reverse
// dependency order, using the dependencies recorded in state.
func (e *Engine) deleteChanges(st *ir.State, addrs []string) ([]*ir.ResourceChange, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	deleteSet := make(map[string]bool, len(addrs))
	for _, addr := range addrs {
		deleteSet[addr] = true
	}

	nodes := make([]GraphNode, 0, len(addrs))
	for _, addr := range addrs {
		inst := st.Resources[addr]
		// Fail early if the plan would need a handler we don't have.
		reg, err := e.registry.Get(inst.Type)
		if err != nil {
			return nil, err
		}
		var deps []string
		for _, dep := range inst.Dependencies {
			if deleteSet[dep] {
				deps = append(deps, dep)
			}
		}
		nodes = append(nodes, GraphNode{
			Address:  addr,
			Deps:     deps,
			Priority: reg.Priority,
		})
	}

	dag, err := BuildDAG(nodes)
	if err != nil {
		return nil, err
	}

	var changes []*ir.ResourceChange
	for _, addr := range dag.ReverseOrder() {
		inst := st.Resources[addr]
		changes = append(changes, &ir.ResourceChange{
			Address:      addr,
			Type:         inst.Type,
			Name:         inst.Name,
			Action:       ir.ActionDelete,
			Before:       inst.Attributes,
			Dependencies: inst.Dependencies,
		})
	}
	return changes, nil
}

func (e *Engine) planMetadata(st *ir.State, desired []*ir.Resource, opts PlanOptions) ir.PlanMetadata {
	return ir.PlanMetadata{
		ProjectKey:    e.projectKey,
		CreatedAt:     time.Now().UTC(),
		Destroy:       opts.Destroy,
		Refresh:       opts.Refresh,
		StateLineage:  st.Lineage,
		StateSerial:   st.Serial,
		StateDigest:   ir.ComputeDigest(st.Resources),
		ConfigDigest:  configDigest(desired),
		EngineVersion: Version,
	}
}

// configDigest hashes the desired resource set (minus ordering and
// explicit dependency metadata) so plans can be correlated with the
// configuration they came from.
func configDigest(desired []*ir.Resource) string {
	items := make([]map[string]any, 0, len(desired))
	for _, r := range desired {
		items = append(items, map[string]any{
			"address":    r.Address(),
			"type":       r.Type,
			"attributes": r.Attributes,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i]["address"].(string) < items[j]["address"].(string)
	})

	data, err := json.Marshal(items)
	if err != nil {
		panic(fmt.Sprintf("engine: config not serializable: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func dedupeSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
