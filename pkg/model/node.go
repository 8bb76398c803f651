package model

import "time"

// Node represents a vertex in the directory graph
type Node struct {
	Key         string    `json:"key" validate:"required"` // Unique key of the node within a graph
	Tags        Tags      `json:"tags"`                    // Ordered labels attached to the node
	CreatedDate time.Time `json:"createdDate"`             // When the node was added
}

// NewNode creates a new Node with the given key
func NewNode(key string, createdDate time.Time) *Node {
	return &Node{
		Key:         key,
		Tags:        Tags{},
		CreatedDate: createdDate,
	}
}

// Clone returns a copy of the node that shares no mutable state with n
func (n Node) Clone() Node {
	n.Tags = n.Tags.Clone()
	return n
}

// Equal reports whether two nodes carry the same key, tags and creation date
func (n Node) Equal(other Node) bool {
	return n.Key == other.Key &&
		n.CreatedDate.Equal(other.CreatedDate) &&
		n.Tags.Equal(other.Tags)
}
