package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/logging"
)

// Phase marks where a change is in its apply lifecycle, for progress
// reporting.
type Phase string

const (
	PhaseStart  Phase = "start"
	PhaseDone   Phase = "done"
	PhaseFailed Phase = "failed"
)

// ApplyCallback receives progress events as changes are applied. It is
// invoked synchronously from the apply loop; a nil callback is allowed.
type ApplyCallback func(change *ir.ResourceChange, phase Phase)

// Apply executes the plan's changes strictly in order, persisting state
// after every successful change so an interrupted run loses at most the
// change in flight. On failure it returns an ApplyError carrying the
// partial result; nothing is rolled back.
func (e *Engine) Apply(ctx context.Context, plan *ir.Plan, cb ApplyCallback) (*ir.ApplyResult, error) {
	result := &ir.ApplyResult{}

	err := e.store.WithLock(func() error {
		st, err := e.loadStateForApply(plan.Metadata)
		if err != nil {
			return err
		}
		if err := e.checkPlanFresh(plan.Metadata, st); err != nil {
			return err
		}

		for _, change := range plan.Changes {
			if change.Action == ir.ActionNoOp {
				continue
			}
			if err := ctx.Err(); err != nil {
				return &CanceledError{Result: result, Err: err}
			}

			if cb != nil {
				cb(change, PhaseStart)
			}
			logging.L().Info().
				Str("address", change.Address).
				Str("action", string(change.Action)).
				Msg("applying change")

			if err := e.applyChange(ctx, st, change); err != nil {
				if cb != nil {
					cb(change, PhaseFailed)
				}
				return &ApplyError{Result: result, Address: change.Address, Err: err}
			}

			if err := e.store.Save(st); err != nil {
				if cb != nil {
					cb(change, PhaseFailed)
				}
				return &ApplyError{Result: result, Address: change.Address, Err: err}
			}

			if cb != nil {
				cb(change, PhaseDone)
			}
			result.Applied = append(result.Applied, change)
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// Destroy plans and applies the deletion of every tracked resource.
func (e *Engine) Destroy(ctx context.Context, cb ApplyCallback) (*ir.ApplyResult, error) {
	plan, err := e.Plan(ctx, nil, PlanOptions{Destroy: true})
	if err != nil {
		return nil, err
	}
	return e.Apply(ctx, plan, cb)
}

// loadStateForApply loads the state, or bootstraps one from the plan's
// metadata when no file exists yet, so a saved plan can be applied from
// a fresh checkout.
func (e *Engine) loadStateForApply(md ir.PlanMetadata) (*ir.State, error) {
	if !e.store.Exists() {
		st := ir.NewState(e.projectKey)
		st.Lineage = md.StateLineage
		st.Serial = md.StateSerial
		return st, nil
	}
	return e.loadState()
}

// checkPlanFresh rejects plans computed for a different project or
// against state that has since changed.
func (e *Engine) checkPlanFresh(md ir.PlanMetadata, st *ir.State) error {
	if md.ProjectKey != e.projectKey {
		return &ProjectMismatchError{Expected: e.projectKey, Got: md.ProjectKey}
	}
	if md.StateLineage != st.Lineage {
		return &StalePlanError{Reason: fmt.Sprintf("state lineage changed (%s != %s)", st.Lineage, md.StateLineage)}
	}
	if md.StateSerial != st.Serial {
		return &StalePlanError{Reason: fmt.Sprintf("state serial changed (%d != %d)", st.Serial, md.StateSerial)}
	}
	if digest := ir.ComputeDigest(st.Resources); md.StateDigest != digest {
		return &StalePlanError{Reason: "state contents changed"}
	}
	return nil
}

// applyChange runs one change through its handler and updates the
// in-memory state. The caller persists.
func (e *Engine) applyChange(ctx context.Context, st *ir.State, change *ir.ResourceChange) error {
	reg, err := e.registry.Get(change.Type)
	if err != nil {
		return err
	}

	switch change.Action {
	case ir.ActionCreate:
		attrs, err := reg.Handler.Create(ctx, changeResource(change))
		if err != nil {
			return err
		}
		st.Resources[change.Address] = newResourceState(change, attrs, time.Time{})

	case ir.ActionUpdate:
		prior := st.Resources[change.Address]
		if prior == nil {
			return fmt.Errorf("no state entry for %s", change.Address)
		}
		attrs, err := reg.Handler.Update(ctx, changeResource(change), prior)
		if err != nil {
			return err
		}
		st.Resources[change.Address] = newResourceState(change, attrs, prior.CreatedAt)

	case ir.ActionDelete:
		prior := st.Resources[change.Address]
		if prior == nil {
			return fmt.Errorf("no state entry for %s", change.Address)
		}
		if err := reg.Handler.Delete(ctx, prior); err != nil {
			return err
		}
		delete(st.Resources, change.Address)

	default:
		return fmt.Errorf("cannot apply action %q for %s", change.Action, change.Address)
	}
	return nil
}

// changeResource reconstructs the desired resource a change was planned
// from.
func changeResource(change *ir.ResourceChange) *ir.Resource {
	return &ir.Resource{
		Type:       change.Type,
		Name:       change.Name,
		Attributes: change.After,
		DependsOn:  change.Dependencies,
	}
}

func newResourceState(change *ir.ResourceChange, attrs map[string]any, createdAt time.Time) *ir.ResourceState {
	if attrs == nil {
		attrs = map[string]any{}
	}
	now := time.Now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	return &ir.ResourceState{
		Address:        change.Address,
		Type:           change.Type,
		Name:           change.Name,
		Attributes:     attrs,
		AttributesHash: ir.HashAttributes(attrs),
		Dependencies:   change.Dependencies,
		CreatedAt:      createdAt,
		UpdatedAt:      now,
	}
}
