package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.canoozie.net/riddling/graphdir/pkg/graph"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

var created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testGraph(t *testing.T) *graph.Map {
	t.Helper()
	m := graph.New()
	for _, key := range []string{"a", "b"} {
		n := model.NewNode(key, created)
		n.Tags.Set("team", "core")
		require.NoError(t, m.AddNode(*n))
	}
	e := model.NewEdge("a", "b", "owns")
	e.CreatedDate = created
	_, err := m.AddEdge(*e)
	require.NoError(t, err)
	return m
}

func TestSnapshotEncoding(t *testing.T) {
	g := testGraph(t)

	blob, err := EncodeSnapshot(Snapshot{Seq: 42, Graph: g})
	require.NoError(t, err)

	s, err := DecodeSnapshot(blob)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), s.Seq)
	assert.True(t, s.Graph.Equal(g))
}

func TestSnapshotEncodingErrors(t *testing.T) {
	_, err := EncodeSnapshot(Snapshot{Seq: 1})
	assert.Error(t, err)

	_, err = DecodeSnapshot([]byte{1, 2, 3})
	assert.ErrorIs(t, err, model.ErrInvalidSerializedData)

	_, err = DecodeSnapshot(make([]byte, 12))
	assert.Error(t, err)
}

// snapshotStoreContract runs the behavior every SnapshotStore must share
func snapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "b", []byte("two")))
	require.NoError(t, store.Set(ctx, "a", []byte("one")))
	require.NoError(t, store.Set(ctx, "a", []byte("uno")))

	blob, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("uno"), blob)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Get(canceled, "b")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Set(canceled, "b", nil), context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	snapshotStoreContract(t, store)
}

func TestMemoryStoreCopiesBlobs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	blob := []byte("abc")
	require.NoError(t, store.Set(ctx, "g", blob))
	blob[0] = 'x'

	got, err := store.Get(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestLoadAndSaveSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := LoadSnapshot(ctx, store, "g")
	require.NoError(t, err)
	assert.Zero(t, s.Seq)
	assert.Zero(t, s.Graph.Len())

	g := testGraph(t)
	require.NoError(t, SaveSnapshot(ctx, store, "g", Snapshot{Seq: 7, Graph: g}))

	s, err = LoadSnapshot(ctx, store, "g")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), s.Seq)
	assert.True(t, s.Graph.Equal(g))

	require.NoError(t, store.Set(ctx, "broken", []byte("garbage!garbage!")))
	_, err = LoadSnapshot(ctx, store, "broken")
	assert.Error(t, err)
}
