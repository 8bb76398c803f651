package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"git.canoozie.net/riddling/graphdir/pkg/common"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// Registry opens directories on first use and keeps them open until Close
type Registry struct {
	mu     sync.Mutex
	opts   Options
	dirs   map[string]*Directory
	closed bool
}

// NewRegistry creates a registry whose directories share opts
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = model.DefaultLoggerInstance
	}
	return &Registry{
		opts: opts,
		dirs: make(map[string]*Directory),
	}
}

// Get returns the directory of graph id, opening it if needed
func (r *Registry) Get(ctx context.Context, id string) (*Directory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if d, ok := r.dirs[id]; ok {
		return d, nil
	}

	d, err := Open(ctx, id, r.opts)
	if err != nil {
		return nil, err
	}
	r.dirs[id] = d
	return d, nil
}

// Execute runs a command batch against graph id
func (r *Registry) Execute(ctx context.Context, id, command string) (*Outcome, error) {
	var outcome *Outcome
	err := r.with(ctx, id, func(d *Directory) error {
		var err error
		outcome, err = d.Execute(ctx, command)
		return err
	})
	return outcome, err
}

// Clear empties graph id
func (r *Registry) Clear(ctx context.Context, id string) error {
	return r.with(ctx, id, func(d *Directory) error {
		return d.Clear(ctx)
	})
}

// with runs fn on the directory of graph id. A directory dropped while fn
// waited for it is replaced by a freshly opened one.
func (r *Registry) with(ctx context.Context, id string, fn func(*Directory) error) error {
	for {
		d, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		err = fn(d)
		if errors.Is(err, ErrClosed) && r.dropped(id, d) {
			continue
		}
		return err
	}
}

// dropped reports whether d is no longer the open directory of id while the
// registry itself is still open
func (r *Registry) dropped(id string, d *Directory) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && r.dirs[id] != d
}

// Drop closes graph id and deletes everything stored for it. The registry
// stays locked until the files are gone so the graph cannot be reopened from
// them.
func (r *Registry) Drop(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	d, ok := r.dirs[id]
	if !ok {
		var err error
		if d, err = Open(ctx, id, r.opts); err != nil {
			return err
		}
	}
	delete(r.dirs, id)
	return d.destroy(ctx)
}

// List returns the ids of open and persisted graphs, sorted
func (r *Registry) List(ctx context.Context) ([]string, error) {
	stored, err := r.opts.Store.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		seen[id] = struct{}{}
	}

	if r.opts.JournalDir != "" {
		entries, err := os.ReadDir(r.opts.JournalDir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to list journals: %w", err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, common.JournalFileSuffix) {
				continue
			}
			id := strings.TrimSuffix(name, common.JournalFileSuffix)
			if common.ValidateGraphID(id) == nil {
				seen[id] = struct{}{}
			}
		}
	}

	r.mu.Lock()
	for id := range r.dirs {
		seen[id] = struct{}{}
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes every open directory
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	dirs := r.dirs
	r.dirs = make(map[string]*Directory)
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range dirs {
		d := d
		g.Go(func() error {
			return d.Close(gctx)
		})
	}
	return g.Wait()
}
