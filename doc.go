// Package runstore provides pooled, migration-gated access to a run metadata
// database with lazily populated caches of reference data.
//
// A store lives at a logical location: a directory holding an embedded SQLite
// file, or a database on a PostgreSQL server. The pool package hands out one
// shared Handle per location, runs pending schema migrations on it at most once,
// and owns a set of named caches that serve small lookup tables (experiments,
// tags) without repeated round-trips.
//
// # Key Components
//
//   - Repo: persistence contract for experiments, tags and runs (PostgreSQL, SQLite)
//   - pool.Registry: weakly held, single-construction registry of Handles
//   - pool.Handle: connection pool, migration gate and named cache set
//   - cache.Lazy: memoized key/value view over a bulk-fetched collection
//   - catalog.Catalog: reference data service built on a Handle's caches
//
// # Example Usage
//
//	backend, err := cfg.Database.Backend()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry := pool.NewRegistry(backend)
//	h, err := registry.Acquire(ctx, registry.DefaultLocation())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cat, err := catalog.Open(ctx, h)
//	tags, err := cat.Tags(ctx)
//
// See the database package for backend configuration and the http package for
// the REST API.
package runstore
