package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"git.canoozie.net/riddling/graphdir/pkg/common"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// BadgerConfig holds configuration for a badger backed snapshot store
type BadgerConfig struct {
	Path              string        // Directory for database files, ignored when InMemory
	InMemory          bool          // Keep everything in memory
	SyncWrites        bool          // Sync every write to disk
	NumVersionsToKeep int           // Versions kept per key
	GCInterval        time.Duration // Value log GC interval, zero disables
	GCDiscardRatio    float64       // Garbage ratio that triggers a rewrite
	Logger            model.Logger  // Logger for store and badger messages
}

// DefaultBadgerConfig returns the configuration used for on-disk stores
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:              path,
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
		GCDiscardRatio:    0.5,
	}
}

// InMemoryBadgerConfig returns a configuration for tests
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:          true,
		NumVersionsToKeep: 1,
	}
}

// badgerLogger adapts model.Logger to badger's logger interface
type badgerLogger struct {
	logger model.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error("badger: "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn("badger: "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug("badger: "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug("badger: "+format, args...)
}

// BadgerStore keeps snapshots in a badger database under snap:<id> keys
type BadgerStore struct {
	db     *badger.DB
	logger model.Logger

	gcInterval time.Duration
	gcRatio    float64
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once
}

// OpenBadgerStore opens the database described by config and starts value
// log garbage collection when an interval is configured
func OpenBadgerStore(config BadgerConfig) (*BadgerStore, error) {
	if config.Logger == nil {
		config.Logger = model.DefaultLoggerInstance
	}
	if !config.InMemory && config.Path == "" {
		return nil, errors.New("path is required for persistent snapshot store")
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(config.Path, 0750); err != nil {
			return nil, fmt.Errorf("create snapshot directory %s: %w", config.Path, err)
		}
		opts = badger.DefaultOptions(config.Path)
	}
	if config.NumVersionsToKeep < 1 {
		config.NumVersionsToKeep = 1
	}
	opts = opts.
		WithSyncWrites(config.SyncWrites).
		WithNumVersionsToKeep(config.NumVersionsToKeep).
		WithLogger(&badgerLogger{logger: config.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &BadgerStore{
		db:         db,
		logger:     config.Logger,
		gcInterval: config.GCInterval,
		gcRatio:    config.GCDiscardRatio,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	if config.GCInterval > 0 && !config.InMemory {
		go s.runGC()
	} else {
		close(s.doneCh)
	}

	if config.InMemory {
		s.logger.Info("Opened in-memory snapshot store")
	} else {
		s.logger.Info("Opened snapshot store at %s", config.Path)
	}
	return s, nil
}

// Get returns the snapshot blob stored for graphID
func (s *BadgerStore) Get(ctx context.Context, graphID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(common.FormatSnapshotKey(graphID)))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %q: %w", graphID, err)
	}
	return blob, nil
}

// Set replaces the snapshot blob stored for graphID
func (s *BadgerStore) Set(ctx context.Context, graphID string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(common.FormatSnapshotKey(graphID)), blob)
	})
	if err != nil {
		return fmt.Errorf("badger set %q: %w", graphID, err)
	}

	s.logger.Debug("Stored snapshot of %s (%d bytes)", graphID, len(blob))
	return nil
}

// Delete removes the snapshot stored for graphID
func (s *BadgerStore) Delete(ctx context.Context, graphID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(common.FormatSnapshotKey(graphID)))
	})
	if err != nil {
		return fmt.Errorf("badger delete %q: %w", graphID, err)
	}
	return nil
}

// List returns the ids of all stored snapshots
func (s *BadgerStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(common.SnapshotKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if id, ok := common.ParseSnapshotKey(string(it.Item().Key())); ok {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

// Close stops garbage collection and closes the database
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		err = s.db.Close()
		s.logger.Info("Closed snapshot store")
	})
	return err
}

func (s *BadgerStore) runGC() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(s.gcRatio)
			if err == nil {
				s.logger.Debug("Badger value log GC completed")
			} else if !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("Badger value log GC failed: %v", err)
			}
		}
	}
}
