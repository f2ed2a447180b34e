package pool

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/cache"
	"github.com/sagarc03/runstore/database"
)

// conn owns the connection pool so it can be closed without a reference to
// the Handle, either explicitly or after the Handle is collected.
type conn struct {
	db   database.Database
	once sync.Once
	err  error
}

func (c *conn) close() error {
	c.once.Do(func() {
		c.err = c.db.Close()
	})
	return c.err
}

// Handle is a shared, pooled connection to one store together with its
// migration state and caches. All methods are safe for concurrent use.
type Handle struct {
	desc     database.Descriptor
	conn     *conn
	registry *Registry
	self     weak.Pointer[Handle]

	migrateMu sync.Mutex
	migrated  atomic.Bool

	caches *cache.Set
}

func newHandle(r *Registry, d database.Descriptor, db database.Database) *Handle {
	return &Handle{
		desc:     d,
		conn:     &conn{db: db},
		registry: r,
		caches:   cache.NewSet(),
	}
}

// Location is the resolved store location.
func (h *Handle) Location() string {
	return h.desc.Location
}

// Descriptor returns the connection descriptor the Handle was opened with.
func (h *Handle) Descriptor() database.Descriptor {
	return h.desc
}

func (h *Handle) ReadOnly() bool {
	return h.desc.ReadOnly
}

// Migrated reports whether EnsureMigrated has succeeded on this Handle.
func (h *Handle) Migrated() bool {
	return h.migrated.Load()
}

// EnsureMigrated runs the migrator the first time it is called and is a no-op
// after a success. A failed run wraps runstore.ErrMigration and leaves the
// Handle unmigrated so a later call tries again. Read-only Handles return
// runstore.ErrReadOnly.
func (h *Handle) EnsureMigrated(ctx context.Context) error {
	if h.migrated.Load() {
		return nil
	}

	if h.desc.ReadOnly {
		return fmt.Errorf("migrate %s: %w", h.desc.Location, runstore.ErrReadOnly)
	}

	h.migrateMu.Lock()
	defer h.migrateMu.Unlock()

	if h.migrated.Load() {
		return nil
	}

	if err := h.registry.migrate(ctx, h.conn.db); err != nil {
		return fmt.Errorf("migrate %s: %w: %w", h.desc.Location, runstore.ErrMigration, err)
	}

	h.migrated.Store(true)
	slog.Debug("migrated store", "key", h.desc.Key)
	return nil
}

// Database returns the open store. The returned value keeps the Handle
// alive, so the pool is not reclaimed while it is in use.
func (h *Handle) Database() database.Database {
	return handleDatabase{Database: h.conn.db, h: h}
}

// DB returns a database/sql handle on the store's pool. Unlike Database and
// Repo it does not keep the Handle alive; callers must hold the Handle for as
// long as they use it.
func (h *Handle) DB() *sql.DB {
	return h.conn.db.DB()
}

// Repo returns the store's repository. The returned value keeps the Handle
// alive.
func (h *Handle) Repo() runstore.Repo {
	return handleRepo{Repo: h.conn.db.Repo(), h: h}
}

// handleDatabase pins its Handle so the GC cleanup cannot close the pool
// underneath it.
type handleDatabase struct {
	database.Database
	h *Handle
}

func (d handleDatabase) Repo() runstore.Repo {
	return d.h.Repo()
}

// handleRepo pins its Handle for the same reason.
type handleRepo struct {
	runstore.Repo
	h *Handle
}

// Caches returns the named caches scoped to this Handle.
func (h *Handle) Caches() *cache.Set {
	return h.caches
}

// Invalidate clears the named cache. Unknown names are ignored.
func (h *Handle) Invalidate(name string) {
	h.caches.Invalidate(name)
}

// InvalidateAll clears every cache on the Handle.
func (h *Handle) InvalidateAll() {
	h.caches.InvalidateAll()
}

// Close closes the connection pool and removes the Handle from its registry.
// Later acquisitions of the same location open a new Handle. Close is
// idempotent.
func (h *Handle) Close() error {
	h.registry.evict(h.desc.Key, h.self)
	return h.conn.close()
}
