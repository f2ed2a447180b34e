package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/database/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	testAdminPool *pgxpool.Pool
	testAdminURL  string
	testPoolOnce  sync.Once
)

type testDB interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Validate(ctx context.Context) error
	Repo() runstore.Repo
	DropTables(ctx context.Context) error
	Close() error
}

// getSharedTestServer returns an admin pool and URL for a container shared
// by every test in the package.
func getSharedTestServer(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			t.Fatalf("failed to get connection string: %v", err)
		}

		pool, err := pgxpool.New(ctx, connectionStr)
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			t.Fatalf("could not connect to database: %v", err)
		}

		testAdminPool = pool
		testAdminURL = connectionStr
	})

	if testAdminPool == nil {
		t.Fatal("shared postgres container unavailable")
	}
	return testAdminPool, testAdminURL
}

// getRandomString generates a random string for unique test identifiers.
func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// withDatabase returns base with its database name replaced.
func withDatabase(t *testing.T, base, name string) string {
	t.Helper()
	u, err := url.Parse(base)
	require.NoError(t, err, "parse connection string")
	u.Path = "/" + name
	return u.String()
}

// getTestDatabaseURL creates an empty database on the shared server and drops
// it when the test ends.
func getTestDatabaseURL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	admin, base := getSharedTestServer(t)
	name := getRandomString(t)
	dsn := withDatabase(t, base, name)

	require.NoError(t, postgres.Initialize(ctx, dsn), "failed to create database")
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(),
			fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{name}.Sanitize()))
	})

	return dsn
}

// setupTestDB connects to a fresh, unmigrated database.
func setupTestDB(t *testing.T) testDB {
	t.Helper()

	db, err := postgres.Connect(context.Background(), postgres.Options{URL: getTestDatabaseURL(t), MaxConns: 4})
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// setupTestRepo returns a repo over a migrated database.
func setupTestRepo(t *testing.T) runstore.Repo {
	t.Helper()

	db := setupTestDB(t)
	require.NoError(t, db.Migrate(context.Background()), "failed to migrate")

	return db.Repo()
}
