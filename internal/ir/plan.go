package ir

import "time"

// Action is the operation a change performs on a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionNoOp   Action = "no-op"
)

// AttributeDiff records a single changed attribute for an update.
type AttributeDiff struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// ResourceChange is one planned or applied change. Exactly one change
// exists per address per plan.
type ResourceChange struct {
	Address string `json:"address"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Action  Action `json:"action"`

	// Before is the last-recorded attribute snapshot (nil for creates).
	Before map[string]any `json:"before,omitempty"`
	// After is the planned attribute snapshot (nil for deletes).
	After map[string]any `json:"after,omitempty"`
	// Diff is the per-attribute diff, populated for updates.
	Diff map[string]AttributeDiff `json:"diff,omitempty"`

	// Dependencies is the resolved dependency set (explicit + implicit),
	// recorded so destroy ordering can be derived from state alone.
	Dependencies []string `json:"dependencies,omitempty"`
}

// PlanMetadata snapshots the state identity a plan was computed against,
// for staleness verification at apply time.
type PlanMetadata struct {
	ProjectKey    string    `json:"project_key"`
	CreatedAt     time.Time `json:"created_at"`
	Destroy       bool      `json:"destroy"`
	Refresh       bool      `json:"refresh"`
	StateLineage  string    `json:"state_lineage"`
	StateSerial   uint64    `json:"state_serial"`
	StateDigest   string    `json:"state_digest"`
	ConfigDigest  string    `json:"config_digest"`
	EngineVersion string    `json:"engine_version"`
}

// Plan is an immutable ordered sequence of changes. The ordering is a
// valid topological linearization of the dependency graph, grouped by
// priority class, with deletes last in reverse dependency order.
type Plan struct {
	Metadata PlanMetadata      `json:"metadata"`
	Changes  []*ResourceChange `json:"changes"`
}

// Summary counts changes per action.
func (p *Plan) Summary() map[Action]int {
	counts := map[Action]int{
		ActionCreate: 0,
		ActionUpdate: 0,
		ActionDelete: 0,
		ActionNoOp:   0,
	}
	for _, c := range p.Changes {
		counts[c.Action]++
	}
	return counts
}

// HasChanges reports whether the plan contains any non-noop change.
func (p *Plan) HasChanges() bool {
	for _, c := range p.Changes {
		if c.Action != ActionNoOp {
			return true
		}
	}
	return false
}

// ApplyResult is the ordered list of changes an apply completed. When an
// apply aborts partway, Applied holds everything that finished before the
// failing change.
type ApplyResult struct {
	Applied []*ResourceChange `json:"applied"`
}

// Summary counts applied changes per action.
func (r *ApplyResult) Summary() map[Action]int {
	counts := map[Action]int{
		ActionCreate: 0,
		ActionUpdate: 0,
		ActionDelete: 0,
	}
	for _, c := range r.Applied {
		counts[c.Action]++
	}
	return counts
}
