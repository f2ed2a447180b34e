package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"weak"

	"github.com/sagarc03/runstore/database"
	"golang.org/x/sync/singleflight"
)

// Opener connects to the store described by a descriptor.
type Opener func(ctx context.Context, d database.Descriptor) (database.Database, error)

// Migrator brings an open store up to the current schema.
type Migrator func(ctx context.Context, db database.Database) error

// Option configures a Registry.
type Option func(*Registry)

// WithOpener replaces database.Open as the connection factory.
func WithOpener(open Opener) Option {
	return func(r *Registry) {
		r.open = open
	}
}

// WithMigrator replaces Database.Migrate as the migration runner.
func WithMigrator(migrate Migrator) Option {
	return func(r *Registry) {
		r.migrate = migrate
	}
}

// AcquireOption configures a single Acquire call.
type AcquireOption func(*acquireOptions)

type acquireOptions struct {
	readOnly bool
}

// ReadOnly opens the store without write access. It only applies when the
// call creates the Handle; a live Handle is returned in whatever mode it was
// first opened with.
func ReadOnly() AcquireOption {
	return func(o *acquireOptions) {
		o.readOnly = true
	}
}

// Registry maps store keys to live Handles without keeping them alive.
type Registry struct {
	backend database.Backend
	open    Opener
	migrate Migrator

	mu      sync.RWMutex
	handles map[string]weak.Pointer[Handle]
	group   singleflight.Group
}

func NewRegistry(backend database.Backend, opts ...Option) *Registry {
	r := &Registry{
		backend: backend,
		open:    database.Open,
		migrate: func(ctx context.Context, db database.Database) error {
			return db.Migrate(ctx)
		},
		handles: make(map[string]weak.Pointer[Handle]),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ResolveURL maps a location to its connection descriptor without touching
// the store. An empty location resolves to DefaultLocation.
func (r *Registry) ResolveURL(location string) (database.Descriptor, error) {
	d, err := r.backend.Resolve(location)
	if err != nil {
		return database.Descriptor{}, fmt.Errorf("resolve %q: %w", location, err)
	}
	return d, nil
}

// DefaultLocation is the location used when callers pass an empty one.
func (r *Registry) DefaultLocation() string {
	return r.backend.DefaultLocation()
}

// Acquire returns the live Handle for location, opening the store if no
// caller currently holds one. Concurrent first acquisitions of the same store
// share one open and receive the same Handle. A location without an
// initialized store returns runstore.ErrNotInitialized.
func (r *Registry) Acquire(ctx context.Context, location string, opts ...AcquireOption) (*Handle, error) {
	var o acquireOptions
	for _, opt := range opts {
		opt(&o)
	}

	d, err := r.ResolveURL(location)
	if err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}
	d.ReadOnly = o.readOnly

	if h := r.lookup(d.Key); h != nil {
		return h, nil
	}

	v, err, _ := r.group.Do(d.Key, func() (any, error) {
		if h := r.lookup(d.Key); h != nil {
			return h, nil
		}

		db, err := r.open(ctx, d)
		if err != nil {
			return nil, err
		}

		h := r.track(d, db)
		slog.Debug("opened store", "key", d.Key, "url", d.Redacted(), "read_only", d.ReadOnly)
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", d.Location, err)
	}

	return v.(*Handle), nil
}

// Init creates the store at location if it does not exist, then acquires and
// migrates it.
func (r *Registry) Init(ctx context.Context, location string) (*Handle, error) {
	d, err := r.ResolveURL(location)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	if err := database.Initialize(ctx, d); err != nil {
		return nil, fmt.Errorf("init %s: %w", d.Location, err)
	}

	h, err := r.Acquire(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	if err := h.EnsureMigrated(ctx); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	return h, nil
}

// Len reports how many Handles are currently alive.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, ref := range r.handles {
		if ref.Value() != nil {
			n++
		}
	}
	return n
}

// Close closes every live Handle and forgets them. Handles acquired
// afterwards open fresh pools.
func (r *Registry) Close() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]weak.Pointer[Handle])
	r.mu.Unlock()

	var errs []error
	for key, ref := range handles {
		h := ref.Value()
		if h == nil {
			continue
		}
		if err := h.conn.close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) lookup(key string) *Handle {
	r.mu.RLock()
	ref, ok := r.handles[key]
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	return ref.Value()
}

// track wraps db in a Handle, records it weakly and arranges for its pool to
// close once the Handle is unreachable.
func (r *Registry) track(d database.Descriptor, db database.Database) *Handle {
	h := newHandle(r, d, db)
	ref := weak.Make(h)
	h.self = ref

	r.mu.Lock()
	r.handles[d.Key] = ref
	r.mu.Unlock()

	runtime.AddCleanup(h, reclaim, reclaimArg{
		registry: r,
		key:      d.Key,
		ref:      ref,
		conn:     h.conn,
	})

	return h
}

// evict drops key only while it still refers to ref, so a replacement Handle
// opened after ref died is left alone.
func (r *Registry) evict(key string, ref weak.Pointer[Handle]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.handles[key]; ok && cur == ref {
		delete(r.handles, key)
	}
}

// reclaimArg must not reference the Handle it cleans up after.
type reclaimArg struct {
	registry *Registry
	key      string
	ref      weak.Pointer[Handle]
	conn     *conn
}

func reclaim(a reclaimArg) {
	a.registry.evict(a.key, a.ref)
	if err := a.conn.close(); err != nil {
		slog.Warn("failed to close reclaimed store", "key", a.key, "err", err)
		return
	}
	slog.Debug("reclaimed store", "key", a.key)
}
