package pool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/cache"
	"github.com/sagarc03/runstore/database"
	"github.com/sagarc03/runstore/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_EnsureMigrated_RunsOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls atomic.Int32
	reg, _ := newFakeRegistry(t, pool.WithMigrator(func(context.Context, database.Database) error {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return nil
	}))

	h, err := reg.Acquire(ctx, t.TempDir())
	require.NoError(t, err)
	assert.False(t, h.Migrated())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.EnsureMigrated(ctx))
		}()
	}
	wg.Wait()

	require.NoError(t, h.EnsureMigrated(ctx))
	assert.True(t, h.Migrated())
	assert.Equal(t, int32(1), calls.Load())
}

func TestHandle_EnsureMigrated_RetryAfterFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls atomic.Int32
	reg, _ := newFakeRegistry(t, pool.WithMigrator(func(context.Context, database.Database) error {
		if calls.Add(1) == 1 {
			return errors.New("disk full")
		}
		return nil
	}))

	h, err := reg.Acquire(ctx, t.TempDir())
	require.NoError(t, err)

	err = h.EnsureMigrated(ctx)
	assert.ErrorIs(t, err, runstore.ErrMigration)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, h.Migrated(), "failure leaves the handle unmigrated")

	require.NoError(t, h.EnsureMigrated(ctx))
	assert.True(t, h.Migrated())
	assert.Equal(t, int32(2), calls.Load())
}

func TestHandle_EnsureMigrated_ReadOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls atomic.Int32
	reg, _ := newFakeRegistry(t, pool.WithMigrator(func(context.Context, database.Database) error {
		calls.Add(1)
		return nil
	}))

	h, err := reg.Acquire(ctx, t.TempDir(), pool.ReadOnly())
	require.NoError(t, err)

	assert.ErrorIs(t, h.EnsureMigrated(ctx), runstore.ErrReadOnly)
	assert.Zero(t, calls.Load())
}

func TestHandle_Close_Reacquire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, opener := newFakeRegistry(t)

	loc := t.TempDir()
	first, err := reg.Acquire(ctx, loc)
	require.NoError(t, err)
	require.NoError(t, first.EnsureMigrated(ctx))

	require.NoError(t, first.Close())
	require.NoError(t, first.Close(), "close is idempotent")
	assert.Equal(t, 0, reg.Len())

	db := <-opener.dbs
	assert.Equal(t, int32(1), db.closed.Load())

	second, err := reg.Acquire(ctx, loc)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.False(t, second.Migrated(), "a new handle has its own migration state")
}

func TestHandle_Caches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, _ := newFakeRegistry(t)

	loc := t.TempDir()
	h, err := reg.Acquire(ctx, loc)
	require.NoError(t, err)

	var produced atomic.Int32
	produce := func(context.Context) ([]string, error) {
		produced.Add(1)
		return []string{"a", "b"}, nil
	}
	identity := func(s string) string { return s }

	names, err := cache.Register[string, string](h.Caches(), "names", produce, identity)
	require.NoError(t, err)

	keys, err := names.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	same, err := reg.Acquire(ctx, loc)
	require.NoError(t, err)
	found, ok := cache.Lookup[string, string](same.Caches(), "names")
	require.True(t, ok, "caches are shared through the handle")
	assert.Same(t, names, found)

	h.Invalidate("names")
	assert.False(t, names.Materialized())
	_, err = names.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), produced.Load())

	again, err := cache.Register[string, string](h.Caches(), "names", produce, identity)
	require.NoError(t, err)
	assert.NotSame(t, names, again, "invalidation removes the cache from the handle")
	_, err = again.Keys(ctx)
	require.NoError(t, err)

	h.InvalidateAll()
	assert.False(t, again.Materialized())
	assert.Empty(t, h.Caches().Names())
	h.Invalidate("unknown")

	assert.Equal(t, int32(3), produced.Load())
}

func TestHandle_Descriptor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, _ := newFakeRegistry(t)

	loc := t.TempDir()
	h, err := reg.Acquire(ctx, loc)
	require.NoError(t, err)

	assert.Equal(t, loc, h.Location())
	assert.Equal(t, database.FamilySQLite, h.Descriptor().Family)
	assert.False(t, h.ReadOnly())
	assert.NotNil(t, h.Database())
}
