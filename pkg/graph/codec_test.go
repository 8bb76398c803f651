package graph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.canoozie.net/riddling/graphdir/pkg/model"
)

func TestMarshalRoundTrip(t *testing.T) {
	m := newTestMap(t)
	n := model.NewNode("a", created)
	n.Tags.Set("region", "us")
	n.Tags.Set("vip", "")
	require.NoError(t, m.AddNode(*n))
	require.NoError(t, m.AddNode(*model.NewNode("b", created)))
	addEdge(t, m, "a", "b", "owns")
	addEdge(t, m, "b", "ghost", "")

	data, err := Marshal(m)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, decoded.Equal(m))

	again, err := Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	assert.Len(t, decoded.SelectEdges(EdgeFilter{Predicates: []Predicate{{Field: FieldToKey, Value: "ghost"}}}), 1)
}

func TestMarshalEmpty(t *testing.T) {
	data, err := Marshal(New())
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.Len())
}

func TestUnmarshalRejectsBadInput(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.AddNode(*model.NewNode("a", created)))
	data, err := Marshal(m)
	require.NoError(t, err)

	var nodeBlob bytes.Buffer
	require.NoError(t, model.WriteHeader(&nodeBlob, model.TypeNode))
	require.NoError(t, model.WriteNode(&nodeBlob, model.NewNode("a", created)))

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: model.ErrInvalidSerializedData},
		{name: "wrong entity", data: nodeBlob.Bytes(), want: model.ErrInvalidEntityType},
		{name: "trailing bytes", data: append(append([]byte{}, data...), 0xff), want: model.ErrInvalidSerializedData},
		{name: "truncated counts", data: data[:len(data)-2], want: model.ErrInvalidSerializedData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
