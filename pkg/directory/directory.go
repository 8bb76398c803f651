// Package directory hosts live GraphLang graphs. A Directory owns one graph,
// serializes the batches executed against it and makes committed batches
// durable through a journal and periodic snapshots.
package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.canoozie.net/riddling/graphdir/pkg/common"
	"git.canoozie.net/riddling/graphdir/pkg/graph"
	"git.canoozie.net/riddling/graphdir/pkg/model"
	"git.canoozie.net/riddling/graphdir/pkg/query"
	"git.canoozie.net/riddling/graphdir/pkg/storage"
)

// ErrClosed is returned by operations on a closed directory
var ErrClosed = errors.New("directory is closed")

// DefaultSnapshotInterval is the number of journaled batches between snapshots
const DefaultSnapshotInterval = 100

// keyNamespace roots the per graph namespaces used to derive edge keys
var keyNamespace = uuid.MustParse("6f1c0b52-3c1e-4a55-9d0b-8d5f1f0e7a31")

// Options configures a Directory
type Options struct {
	// Store receives snapshots. Required.
	Store storage.SnapshotStore

	// JournalDir holds one journal file per graph. Empty disables the
	// journal, in which case every modifying batch is snapshotted.
	JournalDir string

	// SyncWrites syncs the journal after every append
	SyncWrites bool

	// SnapshotInterval is the number of journaled batches between snapshots
	SnapshotInterval int

	// Clock stamps created dates. Defaults to time.Now.
	Clock func() time.Time

	Logger model.Logger
}

// Outcome is the result of a batch executed by a directory
type Outcome struct {
	*query.Result
	Seq uint64 `json:"seq"` // Sequence number of the last committed batch
}

// Directory is the single owner of a live graph
type Directory struct {
	mu         sync.Mutex
	id         string
	graph      *graph.Map
	seq        uint64
	pending    int
	closed     bool
	keys       uuid.UUID
	executor   *query.Executor
	store      storage.SnapshotStore
	journal    *storage.Journal
	syncWrites bool
	interval   int
	clock      func() time.Time
	logger     model.Logger
}

// Open loads the graph id from its last snapshot and replays the journaled
// batches committed after it
func Open(ctx context.Context, id string, opts Options) (*Directory, error) {
	if err := common.ValidateGraphID(id); err != nil {
		return nil, model.Errorf(model.StatusBadRequest, "%v", err)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("directory %q: snapshot store is required", id)
	}
	if opts.Logger == nil {
		opts.Logger = model.DefaultLoggerInstance
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SnapshotInterval <= 0 {
		opts.SnapshotInterval = DefaultSnapshotInterval
	}

	snap, err := storage.LoadSnapshot(ctx, opts.Store, id)
	if err != nil {
		return nil, err
	}

	d := &Directory{
		id:         id,
		graph:      snap.Graph,
		seq:        snap.Seq,
		keys:       uuid.NewSHA1(keyNamespace, []byte(id)),
		executor:   query.NewExecutor(opts.Logger),
		store:      opts.Store,
		syncWrites: opts.SyncWrites,
		interval:   opts.SnapshotInterval,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}

	if opts.JournalDir != "" {
		d.journal, err = storage.OpenJournal(storage.JournalConfig{
			Path:        filepath.Join(opts.JournalDir, common.FormatJournalFileName(id)),
			SyncOnWrite: opts.SyncWrites,
			Logger:      opts.Logger,
		})
		if err != nil {
			return nil, err
		}

		replayed, err := d.journal.Replay(snap.Seq, d.replay)
		if err != nil {
			d.journal.Close()
			return nil, fmt.Errorf("directory %q: %w", id, err)
		}
		d.pending = replayed
		recordReplay(id, replayed)
	}

	recordSize(id, d.graph.NodeCount(), d.graph.EdgeCount())
	d.logger.Info("Opened graph %s at batch %d (%d nodes, %d edges)", id, d.seq, d.graph.NodeCount(), d.graph.EdgeCount())
	return d, nil
}

// replay re-executes a journaled batch with the keys and creation time it
// had when it was first committed
func (d *Directory) replay(record storage.JournalRecord) error {
	if record.Seq != d.seq+1 {
		return fmt.Errorf("journal skips from batch %d to %d", d.seq, record.Seq)
	}

	res, err := d.executor.Execute(record.Command, d.graph, d.execOptions(record.Seq, time.Unix(0, record.Timestamp).UTC())...)
	if err != nil {
		return err
	}
	d.graph = res.Graph
	d.seq = record.Seq
	return nil
}

func (d *Directory) execOptions(seq uint64, at time.Time) []query.ExecOption {
	return []query.ExecOption{
		query.WithKeySource(graph.SequenceKeys(d.keys, seq)),
		query.WithClock(func() time.Time { return at }),
	}
}

// ID returns the graph id
func (d *Directory) ID() string {
	return d.id
}

// Seq returns the sequence number of the last committed batch
func (d *Directory) Seq() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

// Graph returns the current graph. The map must not be modified.
func (d *Directory) Graph() *graph.Map {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.graph
}

// Execute runs a command batch against the graph. A batch that modifies the
// graph is journaled before it becomes visible; a batch that fails leaves
// the graph untouched.
func (d *Directory) Execute(ctx context.Context, command string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}

	start := time.Now()
	seq := d.seq + 1
	at := time.Unix(0, d.clock().UnixNano()).UTC()

	res, err := d.executor.Execute(command, d.graph, d.execOptions(seq, at)...)
	if err != nil {
		recordBatch(d.id, OutcomeRejected, time.Since(start).Seconds())
		return nil, err
	}
	recordStatements(res)

	if !res.Modified {
		recordBatch(d.id, OutcomeReadOnly, time.Since(start).Seconds())
		return &Outcome{Result: res, Seq: d.seq}, nil
	}

	if d.journal != nil {
		record := storage.JournalRecord{Seq: seq, Timestamp: at.UnixNano(), Command: command}
		if err := d.journal.Append(record); err != nil {
			recordBatch(d.id, OutcomeJournal, time.Since(start).Seconds())
			return nil, model.Errorf(model.StatusInternalServerError, "batch could not be persisted").WithCause(err)
		}
	} else if err := d.saveSnapshot(ctx, seq, res.Graph); err != nil {
		recordBatch(d.id, OutcomeSnapshot, time.Since(start).Seconds())
		return nil, model.Errorf(model.StatusInternalServerError, "batch could not be persisted").WithCause(err)
	}

	d.graph = res.Graph
	d.seq = seq

	if d.journal != nil {
		d.pending++
		if d.pending >= d.interval {
			if err := d.checkpoint(ctx); err != nil {
				d.logger.Warn("Snapshot of %s at batch %d failed, journal kept: %v", d.id, d.seq, err)
			}
		}
	}

	recordSize(d.id, d.graph.NodeCount(), d.graph.EdgeCount())
	recordBatch(d.id, OutcomeModified, time.Since(start).Seconds())
	return &Outcome{Result: res, Seq: seq}, nil
}

// Snapshot writes a snapshot of the current graph and empties the journal
func (d *Directory) Snapshot(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	return d.checkpoint(ctx)
}

// checkpoint snapshots the graph and truncates the journal it covers
func (d *Directory) checkpoint(ctx context.Context) error {
	if err := d.saveSnapshot(ctx, d.seq, d.graph); err != nil {
		return err
	}
	if d.journal != nil {
		if err := d.journal.Truncate(); err != nil {
			return err
		}
	}
	d.pending = 0
	return nil
}

func (d *Directory) saveSnapshot(ctx context.Context, seq uint64, g *graph.Map) error {
	if err := storage.SaveSnapshot(ctx, d.store, d.id, storage.Snapshot{Seq: seq, Graph: g}); err != nil {
		return err
	}
	recordSnapshot(d.id)
	d.logger.Debug("Snapshotted graph %s at batch %d", d.id, seq)
	return nil
}

// Clear removes every node and edge. The batch sequence keeps counting so
// edge keys are never reused.
func (d *Directory) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	empty := graph.New()
	if err := d.saveSnapshot(ctx, d.seq, empty); err != nil {
		return model.Errorf(model.StatusInternalServerError, "graph could not be cleared").WithCause(err)
	}

	// The stored snapshot is authoritative from here on; journal records at or
	// below d.seq are skipped on replay even if the truncate fails.
	d.graph = empty
	d.pending = 0
	recordSize(d.id, 0, 0)

	if d.journal != nil {
		if err := d.journal.Truncate(); err != nil {
			d.logger.Warn("Failed to truncate journal of cleared graph %s: %v", d.id, err)
		}
	}
	d.logger.Info("Cleared graph %s", d.id)
	return nil
}

// Close snapshots pending journaled batches and releases the journal
func (d *Directory) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.journal != nil {
		if d.pending > 0 {
			if err := d.checkpoint(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if !d.syncWrites {
			if err := d.journal.Sync(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := d.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	d.logger.Info("Closed graph %s at batch %d", d.id, d.seq)
	return errors.Join(errs...)
}

// destroy closes the directory and removes its snapshot and journal
func (d *Directory) destroy(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if d.journal != nil && !d.closed {
		path := d.journal.Path()
		if err := d.journal.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	d.closed = true

	if err := d.store.Delete(ctx, d.id); err != nil {
		errs = append(errs, err)
	}
	forgetGraph(d.id)
	d.logger.Info("Dropped graph %s", d.id)
	return errors.Join(errs...)
}
