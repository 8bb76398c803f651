// Package graph holds the in-memory node/edge store that GraphLang commands
// operate on.
//
// A Map is not safe for concurrent mutation. Entities stored in a Map are
// never modified in place; updates store modified copies, which keeps Clone
// cheap and lets callers treat a Map as a value between command batches.
package graph

import (
	"sort"

	"github.com/google/uuid"

	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// KeySource generates keys for new edges
type KeySource func() string

// RandomKeys generates random UUID edge keys
func RandomKeys() KeySource {
	return uuid.NewString
}

// SequenceKeys generates deterministic UUID edge keys derived from a
// namespace, a sequence number and a per-call counter. Two sources created
// with the same arguments produce the same keys in the same order.
func SequenceKeys(namespace uuid.UUID, seq uint64) KeySource {
	n := 0
	return func() string {
		n++
		name := make([]byte, 0, 24)
		name = appendUint(name, seq)
		name = append(name, '/')
		name = appendUint(name, uint64(n))
		return uuid.NewSHA1(namespace, name).String()
	}
}

func appendUint(b []byte, v uint64) []byte {
	var digits [20]byte
	i := len(digits)
	for {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return append(b, digits[i:]...)
}

type keySet map[string]struct{}

// Map is a graph of nodes keyed by node key and edges keyed by edge key, with
// adjacency indexes on edge endpoints
type Map struct {
	nodes    map[string]*model.Node
	edges    map[string]*model.Edge
	outgoing map[string]keySet // FromKey -> edge keys
	incoming map[string]keySet // ToKey -> edge keys
	keys     KeySource
}

// New creates an empty map generating random edge keys
func New() *Map {
	return &Map{
		nodes:    make(map[string]*model.Node),
		edges:    make(map[string]*model.Edge),
		outgoing: make(map[string]keySet),
		incoming: make(map[string]keySet),
		keys:     RandomKeys(),
	}
}

// Clone returns a copy of the map that can be mutated without affecting m
func (m *Map) Clone() *Map {
	c := &Map{
		nodes:    make(map[string]*model.Node, len(m.nodes)),
		edges:    make(map[string]*model.Edge, len(m.edges)),
		outgoing: cloneIndex(m.outgoing),
		incoming: cloneIndex(m.incoming),
		keys:     m.keys,
	}
	for k, n := range m.nodes {
		c.nodes[k] = n
	}
	for k, e := range m.edges {
		c.edges[k] = e
	}
	return c
}

func cloneIndex(index map[string]keySet) map[string]keySet {
	out := make(map[string]keySet, len(index))
	for k, set := range index {
		cp := make(keySet, len(set))
		for key := range set {
			cp[key] = struct{}{}
		}
		out[k] = cp
	}
	return out
}

// SetKeySource replaces the generator used for new edge keys
func (m *Map) SetKeySource(keys KeySource) {
	if keys == nil {
		keys = RandomKeys()
	}
	m.keys = keys
}

// Len returns the number of nodes and edges in the map
func (m *Map) Len() int {
	return len(m.nodes) + len(m.edges)
}

// KeySource returns the generator used for new edge keys
func (m *Map) KeySource() KeySource {
	return m.keys
}

// NodeCount returns the number of nodes
func (m *Map) NodeCount() int {
	return len(m.nodes)
}

// EdgeCount returns the number of edges
func (m *Map) EdgeCount() int {
	return len(m.edges)
}

// Node returns a copy of the node with the given key
func (m *Map) Node(key string) (model.Node, bool) {
	n, ok := m.nodes[key]
	if !ok {
		return model.Node{}, false
	}
	return n.Clone(), true
}

// Edge returns a copy of the edge with the given key
func (m *Map) Edge(key string) (model.Edge, bool) {
	e, ok := m.edges[key]
	if !ok {
		return model.Edge{}, false
	}
	return e.Clone(), true
}

// Nodes returns copies of all nodes ordered by key
func (m *Map) Nodes() []model.Node {
	out := make([]model.Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n.Clone())
	}
	sortNodes(out)
	return out
}

// Edges returns copies of all edges ordered by key
func (m *Map) Edges() []model.Edge {
	out := make([]model.Edge, 0, len(m.edges))
	for _, e := range m.edges {
		out = append(out, e.Clone())
	}
	sortEdges(out)
	return out
}

// Equal reports whether both maps hold the same nodes and edges
func (m *Map) Equal(other *Map) bool {
	if other == nil || len(m.nodes) != len(other.nodes) || len(m.edges) != len(other.edges) {
		return false
	}
	for k, n := range m.nodes {
		o, ok := other.nodes[k]
		if !ok || !n.Equal(*o) {
			return false
		}
	}
	for k, e := range m.edges {
		o, ok := other.edges[k]
		if !ok || !e.Equal(*o) {
			return false
		}
	}
	return true
}

func sortNodes(nodes []model.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
}

func sortEdges(edges []model.Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].Key < edges[j].Key })
}

func sortEdgePtrs(edges []*model.Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].Key < edges[j].Key })
}
