package model

import "time"

// Edge represents a directed, typed relationship between two node keys.
// FromKey and ToKey are not required to name existing nodes.
type Edge struct {
	Key         string    `json:"key"` // System generated key, distinct from node keys
	FromKey     string    `json:"fromKey" validate:"required"`
	ToKey       string    `json:"toKey" validate:"required"`
	EdgeType    string    `json:"edgeType,omitempty"` // Type discriminator, prefix searchable
	Tags        Tags      `json:"tags"`
	CreatedDate time.Time `json:"createdDate"`
}

// NewEdge creates a new Edge between two node keys with the given type
func NewEdge(fromKey, toKey, edgeType string) *Edge {
	return &Edge{
		FromKey:  fromKey,
		ToKey:    toKey,
		EdgeType: edgeType,
		Tags:     Tags{},
	}
}

// Clone returns a copy of the edge that shares no mutable state with e
func (e Edge) Clone() Edge {
	e.Tags = e.Tags.Clone()
	return e
}

// Equal reports whether two edges are identical field by field
func (e Edge) Equal(other Edge) bool {
	return e.Key == other.Key &&
		e.FromKey == other.FromKey &&
		e.ToKey == other.ToKey &&
		e.EdgeType == other.EdgeType &&
		e.CreatedDate.Equal(other.CreatedDate) &&
		e.Tags.Equal(other.Tags)
}
