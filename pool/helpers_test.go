package pool_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/database"
	"github.com/sagarc03/runstore/pool"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	closed atomic.Int32
}

func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Migrate(context.Context) error { return nil }
func (f *fakeDB) SchemaVersion(context.Context) (int, error) { return 0, nil }
func (f *fakeDB) Validate(context.Context) error { return nil }
func (f *fakeDB) Repo() runstore.Repo { return nil }
func (f *fakeDB) DB() *sql.DB { return nil }
func (f *fakeDB) DropTables(context.Context) error { return nil }
func (f *fakeDB) Close() error { f.closed.Add(1); return nil }

// fakeOpener counts opens and records every database it hands out.
type fakeOpener struct {
	delay  time.Duration
	err    error
	opened atomic.Int32
	dbs    chan *fakeDB
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{dbs: make(chan *fakeDB, 64)}
}

func (o *fakeOpener) Open(_ context.Context, _ database.Descriptor) (database.Database, error) {
	o.opened.Add(1)
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	if o.err != nil {
		return nil, o.err
	}
	db := &fakeDB{}
	o.dbs <- db
	return db, nil
}

func sqliteBackend(t *testing.T) database.Backend {
	t.Helper()
	b, err := database.Config{Type: "sqlite", Location: filepath.Join(t.TempDir(), ".runstore")}.Backend()
	require.NoError(t, err)
	return b
}

// newFakeRegistry returns a registry whose stores never touch disk.
func newFakeRegistry(t *testing.T, opts ...pool.Option) (*pool.Registry, *fakeOpener) {
	t.Helper()
	opener := newFakeOpener()
	opts = append([]pool.Option{pool.WithOpener(opener.Open)}, opts...)
	return pool.NewRegistry(sqliteBackend(t), opts...), opener
}
