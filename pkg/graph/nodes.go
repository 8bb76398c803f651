package graph

import (
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// AddNode inserts a node. It fails with StatusBadRequest when the node is
// invalid and StatusConflict when the key is already present.
func (m *Map) AddNode(n model.Node) error {
	if err := model.Validate(n); err != nil {
		return err
	}
	if _, exists := m.nodes[n.Key]; exists {
		return model.Errorf(model.StatusConflict, "node %q already exists", n.Key)
	}

	stored := n.Clone()
	m.nodes[n.Key] = &stored
	return nil
}

// UpdateNodes applies mutate to a copy of every node matching the filter and
// stores the copies. The node key cannot be changed. It returns the updated
// nodes; an empty result means nothing matched.
func (m *Map) UpdateNodes(f NodeFilter, mutate func(*model.Node)) []model.Node {
	current, ok := m.nodes[f.Key]
	if !ok {
		return nil
	}

	updated := current.Clone()
	mutate(&updated)
	updated.Key = current.Key

	m.nodes[updated.Key] = &updated
	return []model.Node{updated.Clone()}
}

// DeleteNode removes the node matching the filter and returns it. Edges
// referring to the node are left in place.
func (m *Map) DeleteNode(f NodeFilter) []model.Node {
	current, ok := m.nodes[f.Key]
	if !ok {
		return nil
	}
	delete(m.nodes, f.Key)
	return []model.Node{current.Clone()}
}

// SelectNodes returns copies of the nodes matching the filter
func (m *Map) SelectNodes(f NodeFilter) []model.Node {
	current, ok := m.nodes[f.Key]
	if !ok || !f.Match(current) {
		return nil
	}
	return []model.Node{current.Clone()}
}
