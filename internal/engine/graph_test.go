package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDAG_Order(t *testing.T) {
	dag, err := BuildDAG([]GraphNode{
		{Address: "dataset.events", Deps: []string{"zone.raw"}, Priority: 50},
		{Address: "zone.raw", Priority: 10},
		{Address: "recipe.clean", Deps: []string{"dataset.events"}, Priority: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"zone.raw", "dataset.events", "recipe.clean"}, dag.Order())
	assert.Equal(t, []string{"recipe.clean", "dataset.events", "zone.raw"}, dag.ReverseOrder())
}

func TestBuildDAG_PriorityOrdersIndependentNodes(t *testing.T) {
	dag, err := BuildDAG([]GraphNode{
		{Address: "scenario.nightly", Priority: 200},
		{Address: "zone.raw", Priority: 10},
		{Address: "dataset.events", Priority: 50},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"zone.raw", "dataset.events", "scenario.nightly"}, dag.Order())
}

func TestBuildDAG_DeclarationOrderBreaksTies(t *testing.T) {
	dag, err := BuildDAG([]GraphNode{
		{Address: "dataset.b", Priority: 50},
		{Address: "dataset.a", Priority: 50},
		{Address: "dataset.c", Priority: 50},
	})
	require.NoError(t, err)

	// Same priority, no edges: declaration order wins, not lexical order.
	assert.Equal(t, []string{"dataset.b", "dataset.a", "dataset.c"}, dag.Order())
}

func TestBuildDAG_DependencyBeatsPriority(t *testing.T) {
	// A low-priority node that a high-priority node depends on must still
	// order first.
	dag, err := BuildDAG([]GraphNode{
		{Address: "zone.raw", Deps: []string{"scenario.bootstrap"}, Priority: 10},
		{Address: "scenario.bootstrap", Priority: 200},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"scenario.bootstrap", "zone.raw"}, dag.Order())
}

func TestBuildDAG_Deterministic(t *testing.T) {
	nodes := []GraphNode{
		{Address: "dataset.a", Deps: []string{"zone.z"}, Priority: 50},
		{Address: "dataset.b", Deps: []string{"zone.z"}, Priority: 50},
		{Address: "zone.z", Priority: 10},
		{Address: "recipe.r", Deps: []string{"dataset.a", "dataset.b"}, Priority: 100},
	}

	first, err := BuildDAG(nodes)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		next, err := BuildDAG(nodes)
		require.NoError(t, err)
		assert.Equal(t, first.Order(), next.Order())
	}
}

func TestBuildDAG_Cycle(t *testing.T) {
	_, err := BuildDAG([]GraphNode{
		{Address: "dataset.a", Deps: []string{"dataset.b"}},
		{Address: "dataset.b", Deps: []string{"dataset.c"}},
		{Address: "dataset.c", Deps: []string{"dataset.a"}},
	})
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	// The path names every participant and closes the loop.
	assert.Len(t, cycleErr.Path, 4)
	assert.Equal(t, cycleErr.Path[0], cycleErr.Path[len(cycleErr.Path)-1])
	assert.Contains(t, err.Error(), "dependency cycle detected")
}

func TestBuildDAG_SelfReferenceIgnored(t *testing.T) {
	dag, err := BuildDAG([]GraphNode{
		{Address: "dataset.a", Deps: []string{"dataset.a"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dataset.a"}, dag.Order())
}

func TestBuildDAG_DuplicateAddress(t *testing.T) {
	_, err := BuildDAG([]GraphNode{
		{Address: "dataset.a"},
		{Address: "dataset.a"},
	})
	var dupErr *DuplicateAddressError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "dataset.a", dupErr.Address)
}

func TestBuildDAG_ExternalDepsIgnored(t *testing.T) {
	// Deps naming addresses outside the graph are not edges.
	dag, err := BuildDAG([]GraphNode{
		{Address: "dataset.a", Deps: []string{"zone.not_in_graph"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dataset.a"}, dag.Order())
	assert.Empty(t, dag.Dependencies("dataset.a"))
}
