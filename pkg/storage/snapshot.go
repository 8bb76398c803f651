package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"git.canoozie.net/riddling/graphdir/pkg/graph"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// ErrNotFound is returned when no snapshot is stored for a graph id
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore persists one encoded snapshot per graph id
type SnapshotStore interface {
	// Get returns the stored blob or ErrNotFound
	Get(ctx context.Context, graphID string) ([]byte, error)

	// Set replaces the stored blob
	Set(ctx context.Context, graphID string, blob []byte) error

	// Delete removes the stored blob. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, graphID string) error

	// List returns the ids of every stored graph, sorted
	List(ctx context.Context) ([]string, error)

	Close() error
}

// Snapshot is a graph together with the sequence number of the last batch
// it contains
type Snapshot struct {
	Seq   uint64
	Graph *graph.Map
}

const snapshotSeqSize = 8

// EncodeSnapshot encodes the sequence number followed by the marshaled graph
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if s.Graph == nil {
		return nil, fmt.Errorf("snapshot has no graph")
	}

	data, err := graph.Marshal(s.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph: %w", err)
	}

	blob := make([]byte, snapshotSeqSize+len(data))
	binary.LittleEndian.PutUint64(blob, s.Seq)
	copy(blob[snapshotSeqSize:], data)
	return blob, nil
}

// DecodeSnapshot decodes a blob produced by EncodeSnapshot
func DecodeSnapshot(blob []byte) (Snapshot, error) {
	if len(blob) < snapshotSeqSize {
		return Snapshot{}, fmt.Errorf("%w: snapshot too short", model.ErrInvalidSerializedData)
	}

	g, err := graph.Unmarshal(blob[snapshotSeqSize:])
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal graph: %w", err)
	}

	return Snapshot{
		Seq:   binary.LittleEndian.Uint64(blob),
		Graph: g,
	}, nil
}

// LoadSnapshot reads and decodes the snapshot of a graph. A missing snapshot
// yields an empty graph at sequence zero.
func LoadSnapshot(ctx context.Context, store SnapshotStore, graphID string) (Snapshot, error) {
	blob, err := store.Get(ctx, graphID)
	if errors.Is(err, ErrNotFound) {
		return Snapshot{Graph: graph.New()}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot of %q: %w", graphID, err)
	}

	s, err := DecodeSnapshot(blob)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot of %q: %w", graphID, err)
	}
	return s, nil
}

// SaveSnapshot encodes and stores the snapshot of a graph
func SaveSnapshot(ctx context.Context, store SnapshotStore, graphID string, s Snapshot) error {
	blob, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, graphID, blob); err != nil {
		return fmt.Errorf("failed to write snapshot of %q: %w", graphID, err)
	}
	return nil
}
