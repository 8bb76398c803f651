package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	node := NewNode("node1", created)

	assert.Equal(t, "node1", node.Key)
	assert.True(t, node.CreatedDate.Equal(created))
	require.NotNil(t, node.Tags)
	assert.Empty(t, node.Tags)
}

func TestNodeCloneIsIndependent(t *testing.T) {
	node := NewNode("node1", time.Now())
	node.Tags.Set("region", "us")

	clone := node.Clone()
	clone.Tags.Set("region", "eu")
	clone.Tags.Set("vip", "")

	value, _ := node.Tags.Get("region")
	assert.Equal(t, "us", value, "clone must not share tag storage")
	assert.NotContains(t, node.Tags, Tag{Name: "vip"})
	assert.False(t, node.Equal(clone))
}

func TestNodeValidation(t *testing.T) {
	err := Validate(Node{})
	require.Error(t, err)
	assert.Equal(t, StatusBadRequest, StatusOf(err))
	assert.Contains(t, err.Error(), "key is required")

	assert.NoError(t, Validate(Node{Key: "a"}))
}
