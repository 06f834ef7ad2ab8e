package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/state"
)

func zoneRef(r *ir.Resource) []string {
	if z, ok := r.Attributes["zone"].(string); ok && z != "" {
		return []string{"zone." + z}
	}
	return nil
}

func seedState(t *testing.T, store *state.Store, project string, resources ...*ir.ResourceState) *ir.State {
	t.Helper()
	st := ir.NewState(project)
	for _, inst := range resources {
		inst.AttributesHash = ir.HashAttributes(inst.Attributes)
		inst.CreatedAt = time.Now().UTC()
		inst.UpdatedAt = inst.CreatedAt
		st.Resources[inst.Address] = inst
	}
	require.NoError(t, store.Save(st))
	return st
}

func TestPlan_CreatesInDependencyOrder(t *testing.T) {
	eng, _, _ := newTestEngine(t, "demo",
		typeSpec{name: "zone", priority: 10},
		typeSpec{name: "dataset", priority: 50, references: zoneRef},
	)

	plan, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "events", map[string]any{"zone": "raw"}),
		res("zone", "raw", nil),
	}, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Changes, 2)

	assert.Equal(t, "zone.raw", plan.Changes[0].Address)
	assert.Equal(t, ir.ActionCreate, plan.Changes[0].Action)
	assert.Equal(t, "dataset.events", plan.Changes[1].Address)
	assert.Equal(t, []string{"zone.raw"}, plan.Changes[1].Dependencies)
}

func TestPlan_NoOpWhenStateMatches(t *testing.T) {
	eng, store, _ := newTestEngine(t, "demo", typeSpec{name: "dataset", priority: 50})
	seedState(t, store, "demo", &ir.ResourceState{
		Address: "dataset.events", Type: "dataset", Name: "events",
		Attributes: map[string]any{"format": "parquet"},
	})

	plan, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "events", map[string]any{"format": "parquet"}),
	}, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Changes, 1)
	assert.Equal(t, ir.ActionNoOp, plan.Changes[0].Action)
	assert.False(t, plan.HasChanges())
}

func TestPlan_ServerManagedAttributesIgnored(t *testing.T) {
	eng, store, _ := newTestEngine(t, "demo", typeSpec{name: "dataset", priority: 50})
	seedState(t, store, "demo", &ir.ResourceState{
		Address: "dataset.events", Type: "dataset", Name: "events",
		Attributes: map[string]any{
			"format":     "parquet",
			"id":         "ds-123",
			"created_by": "system",
		},
	})

	// Attributes the server added are not part of the desired config and
	// must not produce a perpetual update.
	plan, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "events", map[string]any{"format": "parquet"}),
	}, PlanOptions{})
	require.NoError(t, err)
	assert.Equal(t, ir.ActionNoOp, plan.Changes[0].Action)
}

func TestPlan_UpdateDiff(t *testing.T) {
	eng, store, _ := newTestEngine(t, "demo", typeSpec{name: "dataset", priority: 50})
	seedState(t, store, "demo", &ir.ResourceState{
		Address: "dataset.events", Type: "dataset", Name: "events",
		Attributes: map[string]any{"format": "csv", "retention_days": float64(7)},
	})

	plan, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "events", map[string]any{"format": "parquet", "retention_days": 7}),
	}, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Changes, 1)

	change := plan.Changes[0]
	assert.Equal(t, ir.ActionUpdate, change.Action)
	require.Contains(t, change.Diff, "format")
	assert.Equal(t, "csv", change.Diff["format"].Before)
	assert.Equal(t, "parquet", change.Diff["format"].After)
	// Numeric types normalize through JSON, so 7 == 7.0 is not a change.
	assert.NotContains(t, change.Diff, "retention_days")
}

func TestPlan_DeletesComeLastInReverseOrder(t *testing.T) {
	eng, store, _ := newTestEngine(t, "demo",
		typeSpec{name: "zone", priority: 10},
		typeSpec{name: "dataset", priority: 50, references: zoneRef},
	)
	seedState(t, store, "demo",
		&ir.ResourceState{
			Address: "zone.old", Type: "zone", Name: "old",
			Attributes: map[string]any{},
		},
		&ir.ResourceState{
			Address: "dataset.legacy", Type: "dataset", Name: "legacy",
			Attributes:   map[string]any{"zone": "old"},
			Dependencies: []string{"zone.old"},
		},
	)

	plan, err := eng.Plan(context.Background(), []*ir.Resource{
		res("zone", "raw", nil),
	}, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Changes, 3)

	assert.Equal(t, "zone.raw", plan.Changes[0].Address)
	assert.Equal(t, ir.ActionCreate, plan.Changes[0].Action)
	// Dependent deletes first.
	assert.Equal(t, "dataset.legacy", plan.Changes[1].Address)
	assert.Equal(t, ir.ActionDelete, plan.Changes[1].Action)
	assert.Equal(t, "zone.old", plan.Changes[2].Address)
	assert.Equal(t, ir.ActionDelete, plan.Changes[2].Action)
}

func TestPlan_UnresolvedReference(t *testing.T) {
	eng, _, _ := newTestEngine(t, "demo",
		typeSpec{name: "dataset", priority: 50, references: zoneRef},
	)

	_, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "events", map[string]any{"zone": "missing"}),
	}, PlanOptions{})

	var refErr *UnresolvedReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "dataset.events", refErr.Address)
	assert.Equal(t, "zone.missing", refErr.Reference)
}

func TestPlan_ReferenceSatisfiedByState(t *testing.T) {
	eng, store, _ := newTestEngine(t, "demo",
		typeSpec{name: "zone", priority: 10},
		typeSpec{name: "dataset", priority: 50, references: zoneRef},
	)
	seedState(t, store, "demo", &ir.ResourceState{
		Address: "zone.raw", Type: "zone", Name: "raw",
		Attributes: map[string]any{},
	})

	// zone.raw is being deleted but still satisfies the reference: the
	// unresolved-reference check accepts addresses known to state.
	plan, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "events", map[string]any{"zone": "raw"}),
	}, PlanOptions{})
	require.NoError(t, err)
	assert.True(t, plan.HasChanges())
}

func TestPlan_ValidationAggregatesErrors(t *testing.T) {
	validate := func(r *ir.Resource) []string {
		if _, ok := r.Attributes["zone"]; !ok {
			return []string{"dataset requires a zone attribute"}
		}
		return nil
	}
	eng, _, handler := newTestEngine(t, "demo",
		typeSpec{name: "dataset", priority: 50, validate: validate},
	)

	_, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "a", nil),
		res("dataset", "b", nil),
	}, PlanOptions{})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Len(t, valErr.Errors, 2)
	assert.Contains(t, valErr.Errors[0], "dataset.a")
	// Validation failures mutate nothing.
	assert.Empty(t, handler.operations())
}

func TestPlan_DuplicateAddress(t *testing.T) {
	eng, _, _ := newTestEngine(t, "demo", typeSpec{name: "dataset", priority: 50})

	_, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "events", nil),
		res("dataset", "events", nil),
	}, PlanOptions{})

	var dupErr *DuplicateAddressError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "dataset.events", dupErr.Address)
}

func TestPlan_UnknownType(t *testing.T) {
	eng, _, _ := newTestEngine(t, "demo", typeSpec{name: "dataset", priority: 50})

	_, err := eng.Plan(context.Background(), []*ir.Resource{
		res("warehouse", "main", nil),
	}, PlanOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource type: warehouse")
}

func TestPlan_Destroy(t *testing.T) {
	eng, store, _ := newTestEngine(t, "demo",
		typeSpec{name: "zone", priority: 10},
		typeSpec{name: "dataset", priority: 50},
	)
	seedState(t, store, "demo",
		&ir.ResourceState{
			Address: "zone.raw", Type: "zone", Name: "raw",
			Attributes: map[string]any{},
		},
		&ir.ResourceState{
			Address: "dataset.events", Type: "dataset", Name: "events",
			Attributes:   map[string]any{"zone": "raw"},
			Dependencies: []string{"zone.raw"},
		},
	)

	plan, err := eng.Plan(context.Background(), nil, PlanOptions{Destroy: true})
	require.NoError(t, err)
	require.Len(t, plan.Changes, 2)
	assert.Equal(t, "dataset.events", plan.Changes[0].Address)
	assert.Equal(t, "zone.raw", plan.Changes[1].Address)
	assert.True(t, plan.Metadata.Destroy)
	for _, c := range plan.Changes {
		assert.Equal(t, ir.ActionDelete, c.Action)
	}
}

func TestPlan_ProjectKeyInterpolation(t *testing.T) {
	eng, _, _ := newTestEngine(t, "analytics", typeSpec{name: "dataset", priority: 50})

	plan, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "events", map[string]any{
			"path": "s3://bucket/${projectKey}/events",
			"tags": []any{"${projectKey}"},
		}),
	}, PlanOptions{})
	require.NoError(t, err)

	after := plan.Changes[0].After
	assert.Equal(t, "s3://bucket/analytics/events", after["path"])
	assert.Equal(t, []any{"analytics"}, after["tags"])
}

func TestPlan_MetadataSnapshotsState(t *testing.T) {
	eng, store, _ := newTestEngine(t, "demo", typeSpec{name: "dataset", priority: 50})
	st := seedState(t, store, "demo", &ir.ResourceState{
		Address: "dataset.events", Type: "dataset", Name: "events",
		Attributes: map[string]any{},
	})

	plan, err := eng.Plan(context.Background(), nil, PlanOptions{})
	require.NoError(t, err)

	assert.Equal(t, "demo", plan.Metadata.ProjectKey)
	assert.Equal(t, st.Lineage, plan.Metadata.StateLineage)
	assert.Equal(t, st.Serial, plan.Metadata.StateSerial)
	assert.Equal(t, ir.ComputeDigest(st.Resources), plan.Metadata.StateDigest)
	assert.Equal(t, Version, plan.Metadata.EngineVersion)
	assert.NotEmpty(t, plan.Metadata.ConfigDigest)
}

func datasetInputRefs(r *ir.Resource) []string {
	var refs []string
	for _, v := range r.Attributes["inputs"].([]any) {
		refs = append(refs, "dataset."+v.(string))
	}
	return refs
}

func provideDatasetAlias(r *ir.Resource) []string {
	return []string{"dataset." + r.Name}
}

func TestPlan_NamespaceAliasResolvesReferences(t *testing.T) {
	eng, _, _ := newTestEngine(t, "demo",
		typeSpec{name: "dataset", priority: 50},
		typeSpec{name: "foreign_dataset", priority: 90, provides: provideDatasetAlias},
		typeSpec{name: "recipe", priority: 100, references: datasetInputRefs},
	)

	// The recipe consumes a local and a cross-project dataset by the same
	// dataset.<name> convention; the alias routes the second reference to
	// the foreign declaration.
	plan, err := eng.Plan(context.Background(), []*ir.Resource{
		res("recipe", "clean", map[string]any{"inputs": []any{"events", "customers"}}),
		res("foreign_dataset", "customers", map[string]any{"source_project": "crm"}),
		res("dataset", "events", nil),
	}, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Changes, 3)

	assert.Equal(t, "dataset.events", plan.Changes[0].Address)
	assert.Equal(t, "foreign_dataset.customers", plan.Changes[1].Address)
	assert.Equal(t, "recipe.clean", plan.Changes[2].Address)
	assert.Equal(t, []string{"dataset.events", "foreign_dataset.customers"},
		plan.Changes[2].Dependencies)
}

func TestPlan_NamespaceAliasCollision(t *testing.T) {
	eng, _, _ := newTestEngine(t, "demo",
		typeSpec{name: "dataset", priority: 50},
		typeSpec{name: "foreign_dataset", priority: 90, provides: provideDatasetAlias},
	)

	// A foreign declaration cannot shadow a local dataset of the same
	// name.
	_, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "customers", nil),
		res("foreign_dataset", "customers", map[string]any{"source_project": "crm"}),
	}, PlanOptions{})

	var dupErr *DuplicateAddressError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "dataset.customers", dupErr.Address)
}

func TestPlan_Deterministic(t *testing.T) {
	eng, store, _ := newTestEngine(t, "demo",
		typeSpec{name: "zone", priority: 10},
		typeSpec{name: "dataset", priority: 50, references: zoneRef},
	)
	seedState(t, store, "demo",
		&ir.ResourceState{
			Address: "dataset.stale", Type: "dataset", Name: "stale",
			Attributes: map[string]any{},
		},
		&ir.ResourceState{
			Address: "dataset.events", Type: "dataset", Name: "events",
			Attributes: map[string]any{"format": "csv"},
		},
	)

	desired := []*ir.Resource{
		res("zone", "raw", nil),
		res("dataset", "events", map[string]any{"zone": "raw", "format": "parquet"}),
		res("dataset", "clicks", map[string]any{"zone": "raw"}),
	}

	first, err := eng.Plan(context.Background(), desired, PlanOptions{})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		next, err := eng.Plan(context.Background(), desired, PlanOptions{})
		require.NoError(t, err)
		assert.Equal(t, first.Changes, next.Changes)
	}
}

func TestPlan_CycleLeavesStateUntouched(t *testing.T) {
	eng, store, handler := newTestEngine(t, "demo", typeSpec{name: "dataset", priority: 50})

	_, err := eng.Plan(context.Background(), []*ir.Resource{
		res("dataset", "a", nil, "dataset.b"),
		res("dataset", "b", nil, "dataset.a"),
	}, PlanOptions{})

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	// Nothing was written or called: no state file appears and no handler
	// ran.
	assert.False(t, store.Exists())
	assert.Empty(t, handler.operations())
}

func TestPlan_ProjectMismatch(t *testing.T) {
	eng, store, _ := newTestEngine(t, "demo", typeSpec{name: "dataset", priority: 50})
	seedState(t, store, "other", &ir.ResourceState{
		Address: "dataset.events", Type: "dataset", Name: "events",
		Attributes: map[string]any{},
	})

	_, err := eng.Plan(context.Background(), nil, PlanOptions{})
	var mismatch *ProjectMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "demo", mismatch.Expected)
	assert.Equal(t, "other", mismatch.Got)
}
