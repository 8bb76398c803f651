package graph

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// ErrDuplicateKey is returned when decoding a graph that stores the same node
// or edge key twice
var ErrDuplicateKey = errors.New("duplicate key in serialized graph")

// Marshal encodes the map as a header followed by the node count, the nodes,
// the edge count and the edges, each ordered by key
func Marshal(m *Map) ([]byte, error) {
	var buf bytes.Buffer
	if err := model.WriteHeader(&buf, model.TypeGraph); err != nil {
		return nil, err
	}

	nodes := m.Nodes()
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(nodes))); err != nil {
		return nil, err
	}
	for i := range nodes {
		if err := model.WriteNode(&buf, &nodes[i]); err != nil {
			return nil, fmt.Errorf("writing node %q: %w", nodes[i].Key, err)
		}
	}

	edges := m.Edges()
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(edges))); err != nil {
		return nil, err
	}
	for i := range edges {
		if err := model.WriteEdge(&buf, &edges[i]); err != nil {
			return nil, fmt.Errorf("writing edge %q: %w", edges[i].Key, err)
		}
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a map produced by Marshal. The returned map generates
// random edge keys.
func Unmarshal(data []byte) (*Map, error) {
	r := bytes.NewReader(data)
	entityType, err := model.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if entityType != model.TypeGraph {
		return nil, model.ErrInvalidEntityType
	}

	m := New()

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading node count: %w", model.ErrInvalidSerializedData)
	}
	for i := uint32(0); i < count; i++ {
		n, err := model.ReadNode(r)
		if err != nil {
			return nil, err
		}
		if _, exists := m.nodes[n.Key]; exists {
			return nil, fmt.Errorf("node %q: %w", n.Key, ErrDuplicateKey)
		}
		m.nodes[n.Key] = n
	}

	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading edge count: %w", model.ErrInvalidSerializedData)
	}
	for i := uint32(0); i < count; i++ {
		e, err := model.ReadEdge(r)
		if err != nil {
			return nil, err
		}
		if _, exists := m.edges[e.Key]; exists {
			return nil, fmt.Errorf("edge %q: %w", e.Key, ErrDuplicateKey)
		}
		m.edges[e.Key] = e
		m.index(e)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes: %w", r.Len(), model.ErrInvalidSerializedData)
	}
	return m, nil
}
