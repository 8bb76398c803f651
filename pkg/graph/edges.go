package graph

import (
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// AddEdge stores an edge under a freshly generated key and returns the stored
// copy. Endpoints are not checked against existing nodes. Any key set on e
// is ignored.
func (m *Map) AddEdge(e model.Edge) (model.Edge, error) {
	e.Key = m.keys()
	if e.Key == "" {
		return model.Edge{}, model.Errorf(model.StatusInternalServerError, "edge key generation failed").
			WithCause(model.ErrInvalidEdgeKey{Key: e.Key})
	}
	if _, exists := m.edges[e.Key]; exists {
		return model.Edge{}, model.Errorf(model.StatusInternalServerError, "edge key collision").
			WithCause(model.ErrInvalidEdgeKey{Key: e.Key})
	}
	if err := model.Validate(e); err != nil {
		return model.Edge{}, err
	}

	stored := e.Clone()
	m.edges[stored.Key] = &stored
	m.index(&stored)
	return stored.Clone(), nil
}

// UpdateEdges applies mutate to a copy of every edge matching the filter and
// stores the copies. Only EdgeType, Tags and CreatedDate can change. It
// returns the updated edges ordered by key.
func (m *Map) UpdateEdges(f EdgeFilter, mutate func(*model.Edge)) []model.Edge {
	matched := m.match(f)
	out := make([]model.Edge, 0, len(matched))
	for _, current := range matched {
		updated := current.Clone()
		mutate(&updated)
		updated.Key = current.Key
		updated.FromKey = current.FromKey
		updated.ToKey = current.ToKey

		m.edges[updated.Key] = &updated
		out = append(out, updated.Clone())
	}
	return out
}

// DeleteEdges removes every edge matching the filter and returns them ordered
// by key
func (m *Map) DeleteEdges(f EdgeFilter) []model.Edge {
	matched := m.match(f)
	out := make([]model.Edge, 0, len(matched))
	for _, e := range matched {
		delete(m.edges, e.Key)
		m.unindex(e)
		out = append(out, e.Clone())
	}
	return out
}

// SelectEdges returns copies of the edges matching the filter ordered by key
func (m *Map) SelectEdges(f EdgeFilter) []model.Edge {
	matched := m.match(f)
	out := make([]model.Edge, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.Clone())
	}
	return out
}

// match returns the stored edges satisfying f, ordered by key. An exact
// endpoint predicate narrows the scan to the adjacency index.
func (m *Map) match(f EdgeFilter) []*model.Edge {
	var candidates []*model.Edge
	if from, ok := f.exact(FieldFromKey); ok {
		candidates = m.lookup(m.outgoing[from])
	} else if to, ok := f.exact(FieldToKey); ok {
		candidates = m.lookup(m.incoming[to])
	} else {
		candidates = make([]*model.Edge, 0, len(m.edges))
		for _, e := range m.edges {
			candidates = append(candidates, e)
		}
	}

	out := candidates[:0]
	for _, e := range candidates {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	sortEdgePtrs(out)
	return out
}

func (m *Map) lookup(keys keySet) []*model.Edge {
	out := make([]*model.Edge, 0, len(keys))
	for k := range keys {
		if e, ok := m.edges[k]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (m *Map) index(e *model.Edge) {
	addKey(m.outgoing, e.FromKey, e.Key)
	addKey(m.incoming, e.ToKey, e.Key)
}

func (m *Map) unindex(e *model.Edge) {
	removeKey(m.outgoing, e.FromKey, e.Key)
	removeKey(m.incoming, e.ToKey, e.Key)
}

func addKey(index map[string]keySet, endpoint, key string) {
	set, ok := index[endpoint]
	if !ok {
		set = make(keySet)
		index[endpoint] = set
	}
	set[key] = struct{}{}
}

func removeKey(index map[string]keySet, endpoint, key string) {
	set, ok := index[endpoint]
	if !ok {
		return
	}
	delete(set, key)
	if len(set) == 0 {
		delete(index, endpoint)
	}
}
