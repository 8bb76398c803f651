package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.canoozie.net/riddling/graphdir/pkg/graph"
)

func TestOptimizer_Optimize(t *testing.T) {
	optimizer := NewOptimizer()

	tests := []struct {
		name string
		in   []graph.Predicate
		want []graph.Predicate
	}{
		{
			name: "empty filter unchanged",
			in:   nil,
			want: nil,
		},
		{
			name: "exact endpoints first",
			in: []graph.Predicate{
				prefix(graph.FieldEdgeType, "own"),
				exact(graph.FieldToKey, "b"),
				exact(graph.FieldFromKey, "a"),
			},
			want: []graph.Predicate{
				exact(graph.FieldFromKey, "a"),
				exact(graph.FieldToKey, "b"),
				prefix(graph.FieldEdgeType, "own"),
			},
		},
		{
			name: "duplicates removed",
			in: []graph.Predicate{
				exact(graph.FieldFromKey, "a"),
				exact(graph.FieldFromKey, "a"),
				prefix(graph.FieldFromKey, "b"),
				prefix(graph.FieldFromKey, "b"),
			},
			want: []graph.Predicate{
				exact(graph.FieldFromKey, "a"),
				prefix(graph.FieldFromKey, "b"),
			},
		},
		{
			name: "implied prefix dropped",
			in: []graph.Predicate{
				prefix(graph.FieldEdgeType, "own"),
				exact(graph.FieldEdgeType, "owns"),
			},
			want: []graph.Predicate{
				exact(graph.FieldEdgeType, "owns"),
			},
		},
		{
			name: "prefix on another field kept",
			in: []graph.Predicate{
				prefix(graph.FieldToKey, "own"),
				exact(graph.FieldEdgeType, "owns"),
			},
			want: []graph.Predicate{
				exact(graph.FieldEdgeType, "owns"),
				prefix(graph.FieldToKey, "own"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := EdgeSelect{Filter: graph.EdgeFilter{Predicates: tt.in}}
			original := append([]graph.Predicate(nil), tt.in...)

			out, err := optimizer.Optimize(in)
			require.NoError(t, err)
			require.IsType(t, EdgeSelect{}, out)
			assert.Equal(t, tt.want, out.(EdgeSelect).Filter.Predicates)
			assert.Equal(t, original, in.Filter.Predicates)
		})
	}
}

func TestOptimizerKeepsPrefixesWhenDisabled(t *testing.T) {
	optimizer := &Optimizer{DropRedundantPrefixes: false}

	out, err := optimizer.Optimize(EdgeDelete{Filter: graph.EdgeFilter{Predicates: []graph.Predicate{
		prefix(graph.FieldEdgeType, "own"),
		exact(graph.FieldEdgeType, "owns"),
	}}})
	require.NoError(t, err)
	assert.Equal(t, []graph.Predicate{
		exact(graph.FieldEdgeType, "owns"),
		prefix(graph.FieldEdgeType, "own"),
	}, out.(EdgeDelete).Filter.Predicates)
}

func TestOptimizerPassesNodeCommandsThrough(t *testing.T) {
	optimizer := NewOptimizer()

	for _, cmd := range []Command{
		NodeAdd{Key: "a"},
		NodeSelect{Filter: graph.NodeFilter{Key: "a"}},
		EdgeAdd{FromKey: "a", ToKey: "b"},
	} {
		out, err := optimizer.Optimize(cmd)
		require.NoError(t, err)
		assert.Equal(t, cmd, out)
	}

	_, err := optimizer.Optimize(nil)
	assert.Error(t, err)
}

func TestOptimizedFilterSelectsTheSameEdges(t *testing.T) {
	ex := newTestExecutor()
	g := seeded(t, ex)
	g = mustExecute(t, ex, g, "add edge fromKey=a,toKey=c,edgeType=owner;add edge fromKey=c,toKey=a,edgeType=owns;").Graph

	filter := graph.EdgeFilter{Predicates: []graph.Predicate{
		prefix(graph.FieldEdgeType, "own"),
		exact(graph.FieldEdgeType, "owns"),
		exact(graph.FieldToKey, "b"),
		exact(graph.FieldToKey, "b"),
	}}
	optimized, err := NewOptimizer().Optimize(EdgeSelect{Filter: filter})
	require.NoError(t, err)

	assert.Equal(t, g.SelectEdges(filter), g.SelectEdges(optimized.(EdgeSelect).Filter))
}
