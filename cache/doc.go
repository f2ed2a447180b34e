// Package cache provides lazily materialized, invalidatable in-memory views
// over bulk-fetched object collections.
//
// A Lazy cache wraps a producer that fetches every object at once and a key
// function that derives each object's key. Nothing is fetched until the first
// Keys, Values, Get or Lookup call; that call runs the producer exactly once and
// indexes the result. Concurrent first readers wait for the single fetch.
//
// A miss is not an error: Get returns the zero value of V for absent keys so
// callers can probe existence without error handling. Use Lookup when the
// distinction matters.
//
// # Named Sets
//
// A Set maps names to caches of different key and value types. Registration is
// first-wins:
//
//	tags, err := cache.Register(set, "tags", repo.ListTags, func(t runstore.Tag) uuid.UUID {
//	    return t.ID
//	})
//
// Calling Register again with the same name returns the existing instance with
// its materialized state intact. Invalidate removes a cache so the next
// Register builds a fresh one.
package cache
