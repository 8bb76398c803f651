package graph

import (
	"strings"

	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// NodeFilter selects nodes by exact key
type NodeFilter struct {
	Key string
}

// Match reports whether the node satisfies the filter
func (f NodeFilter) Match(n *model.Node) bool {
	return n.Key == f.Key
}

// Field names an edge attribute a predicate can test
type Field int

const (
	FieldFromKey Field = iota
	FieldToKey
	FieldEdgeType
)

var fieldNames = [...]string{
	FieldFromKey:  "fromKey",
	FieldToKey:    "toKey",
	FieldEdgeType: "edgeType",
}

func (f Field) String() string {
	if int(f) < 0 || int(f) >= len(fieldNames) {
		return "unknown"
	}
	return fieldNames[f]
}

// ParseField resolves a field name case-insensitively
func ParseField(name string) (Field, bool) {
	for i, n := range fieldNames {
		if strings.EqualFold(n, name) {
			return Field(i), true
		}
	}
	return 0, false
}

// Predicate tests one edge attribute for equality, or for a prefix when
// Prefix is set
type Predicate struct {
	Field  Field
	Value  string
	Prefix bool
}

func (p Predicate) value(e *model.Edge) string {
	switch p.Field {
	case FieldFromKey:
		return e.FromKey
	case FieldToKey:
		return e.ToKey
	case FieldEdgeType:
		return e.EdgeType
	}
	return ""
}

// Match reports whether the edge satisfies the predicate
func (p Predicate) Match(e *model.Edge) bool {
	v := p.value(e)
	if p.Prefix {
		return strings.HasPrefix(v, p.Value)
	}
	return v == p.Value
}

// EdgeFilter selects edges matching all of its predicates. An empty filter
// matches every edge.
type EdgeFilter struct {
	Predicates []Predicate
}

// Match reports whether the edge satisfies every predicate
func (f EdgeFilter) Match(e *model.Edge) bool {
	for _, p := range f.Predicates {
		if !p.Match(e) {
			return false
		}
	}
	return true
}

// exact returns the value of the first exact predicate on field
func (f EdgeFilter) exact(field Field) (string, bool) {
	for _, p := range f.Predicates {
		if p.Field == field && !p.Prefix {
			return p.Value, true
		}
	}
	return "", false
}
