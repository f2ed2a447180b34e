// Package pool hands out one shared, pooled Handle per store location.
//
// A Registry resolves a location through its database.Backend, opens the
// store on first use and returns the same *Handle to every caller while any
// caller still holds it. The registry itself only keeps weak references, so a
// Handle nobody uses is garbage collected and its connection pool closed.
//
//	reg := pool.NewRegistry(backend)
//	h, err := reg.Acquire(ctx, "/data/project/.runstore")
//	if err != nil {
//		return err
//	}
//	if err := h.EnsureMigrated(ctx); err != nil {
//		return err
//	}
//
// Each Handle also owns a cache.Set of lazily materialized lookup tables that
// share the Handle's lifetime.
package pool
