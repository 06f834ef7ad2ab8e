package null

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/provider"
)

func TestHandler_Lifecycle(t *testing.T) {
	h := NewHandler()
	ctx := context.Background()

	desired := &ir.Resource{
		Type:       "null",
		Name:       "test1",
		Attributes: map[string]any{"triggers": map[string]any{"a": "b"}},
	}

	attrs, err := h.Create(ctx, desired)
	require.NoError(t, err)
	assert.Equal(t, "null-test1", attrs["id"])
	assert.Equal(t, desired.Attributes["triggers"], attrs["triggers"])

	prior := &ir.ResourceState{Address: "null.test1", Type: "null", Name: "test1", Attributes: attrs}

	live, err := h.Read(ctx, prior)
	require.NoError(t, err)
	assert.Equal(t, attrs, live)

	desired.Attributes = map[string]any{"triggers": map[string]any{"a": "c"}}
	updated, err := h.Update(ctx, desired, prior)
	require.NoError(t, err)
	// The id survives updates.
	assert.Equal(t, "null-test1", updated["id"])

	require.NoError(t, h.Delete(ctx, prior))
	live, err = h.Read(ctx, prior)
	require.NoError(t, err)
	assert.Nil(t, live)
}

func TestRegister(t *testing.T) {
	reg := provider.NewRegistry()
	require.NoError(t, Register(reg))

	got, err := reg.Get("null")
	require.NoError(t, err)
	assert.NotNil(t, got.Handler)
}

func TestReferences(t *testing.T) {
	r := &ir.Resource{
		Type: "null",
		Name: "a",
		Attributes: map[string]any{
			"refs": []any{"null.b", "null.c", 42, ""},
		},
	}
	assert.Equal(t, []string{"null.b", "null.c"}, references(r))

	assert.Nil(t, references(&ir.Resource{Type: "null", Name: "x", Attributes: map[string]any{}}))
}
