package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEdge(t *testing.T) {
	edge := NewEdge("a", "b", "owns")

	assert.Equal(t, "a", edge.FromKey)
	assert.Equal(t, "b", edge.ToKey)
	assert.Equal(t, "owns", edge.EdgeType)
	assert.Empty(t, edge.Key, "edge keys are assigned by the graph")
	require.NotNil(t, edge.Tags)
}

func TestEdgeValidation(t *testing.T) {
	err := Validate(Edge{FromKey: "a"})
	require.Error(t, err)
	assert.Equal(t, StatusBadRequest, StatusOf(err))
	assert.Contains(t, err.Error(), "toKey is required")
	assert.NotContains(t, err.Error(), "fromKey")

	// Endpoints are only required to be present, not to exist anywhere.
	assert.NoError(t, Validate(Edge{FromKey: "ghost", ToKey: "nowhere"}))
}

func TestEdgeEqual(t *testing.T) {
	a := *NewEdge("a", "b", "owns")
	a.Key = "e1"
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.EdgeType = "owned"
	assert.False(t, a.Equal(b))
}
