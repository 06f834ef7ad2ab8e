package engine

import (
	"context"
	"time"

	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/logging"
)

// Drift reads every tracked resource from its provider and reports the
// differences against state, without persisting anything. Resources that
// no longer exist are reported as deletes, changed ones as updates;
// drift never produces creates.
func (e *Engine) Drift(ctx context.Context) ([]*ir.ResourceChange, error) {
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	changes, _, err := e.driftState(ctx, st)
	return changes, err
}

// Refresh detects drift and, when any is found, persists the refreshed
// state under the lock.
func (e *Engine) Refresh(ctx context.Context) ([]*ir.ResourceChange, error) {
	var changes []*ir.ResourceChange
	err := e.store.WithLock(func() error {
		st, err := e.loadState()
		if err != nil {
			return err
		}
		drifted, refreshed, err := e.driftState(ctx, st)
		if err != nil {
			return err
		}
		if len(drifted) > 0 {
			if err := e.store.Save(refreshed); err != nil {
				return err
			}
		}
		changes = drifted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// driftState is the pure drift worker: it reads live attributes for every
// tracked address and returns the observed changes alongside a refreshed
// copy of the state. The input state is not mutated and nothing is
// persisted.
func (e *Engine) driftState(ctx context.Context, st *ir.State) ([]*ir.ResourceChange, *ir.State, error) {
	refreshed := st.Clone()
	var changes []*ir.ResourceChange

	for _, addr := range st.Addresses() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		inst := st.Resources[addr]
		reg, err := e.registry.Get(inst.Type)
		if err != nil {
			return nil, nil, err
		}

		live, err := reg.Handler.Read(ctx, inst)
		if err != nil {
			return nil, nil, err
		}

		if live == nil {
			changes = append(changes, &ir.ResourceChange{
				Address:      addr,
				Type:         inst.Type,
				Name:         inst.Name,
				Action:       ir.ActionDelete,
				Before:       inst.Attributes,
				Dependencies: inst.Dependencies,
			})
			delete(refreshed.Resources, addr)
			logging.L().Debug().Str("address", addr).Msg("drift: resource gone")
			continue
		}

		diff := diffAll(inst.Attributes, live)
		if len(diff) == 0 {
			continue
		}

		changes = append(changes, &ir.ResourceChange{
			Address:      addr,
			Type:         inst.Type,
			Name:         inst.Name,
			Action:       ir.ActionUpdate,
			Before:       inst.Attributes,
			After:        live,
			Diff:         diff,
			Dependencies: inst.Dependencies,
		})

		updated := refreshed.Resources[addr]
		updated.Attributes = live
		updated.AttributesHash = ir.HashAttributes(live)
		updated.UpdatedAt = time.Now().UTC()
		logging.L().Debug().
			Str("address", addr).
			Int("attributes", len(diff)).
			Msg("drift: attributes changed")
	}

	return changes, refreshed, nil
}
