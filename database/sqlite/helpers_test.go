package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/database/sqlite"
	"github.com/stretchr/testify/require"
)

type testDB interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Validate(ctx context.Context) error
	Repo() runstore.Repo
	DB() *sql.DB
	DropTables(ctx context.Context) error
	Close() error
}

func testOptions(t *testing.T, dir string) sqlite.Options {
	t.Helper()
	return sqlite.Options{
		Dir:          dir,
		DSN:          sqlite.DSN(filepath.Join(dir, "run_metadata.sqlite"), 5*time.Second),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	}
}

// setupTestDB connects to a fresh store in a temp directory.
func setupTestDB(t *testing.T) testDB {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, testOptions(t, t.TempDir()))
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// setupTestRepo returns a repo over a migrated store.
func setupTestRepo(t *testing.T) runstore.Repo {
	t.Helper()

	db := setupTestDB(t)
	require.NoError(t, db.Migrate(context.Background()), "failed to migrate")

	return db.Repo()
}
