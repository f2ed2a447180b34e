package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/database/postgres"
	"github.com/sagarc03/runstore/database/sqlite"
)

// Database is an open, pooled connection to one store.
type Database interface {
	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error
	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error
	// SchemaVersion returns the latest applied migration version, or 0.
	SchemaVersion(ctx context.Context) (int, error)
	// Validate checks that the database schema matches expected structure.
	Validate(ctx context.Context) error
	// Repo returns the repository for structured data.
	Repo() runstore.Repo
	// DB returns a database/sql handle backed by the pool, for units of work
	// outside Repo.
	DB() *sql.DB
	// DropTables drops every table created by Migrate.
	DropTables(ctx context.Context) error
	// Close releases the pool.
	Close() error
}

// Open connects to the store described by d. A location without an
// initialized store returns ErrNotInitialized; it is never created here.
func Open(ctx context.Context, d Descriptor) (Database, error) {
	switch d.Family {
	case FamilySQLite:
		db, err := sqlite.Connect(ctx, sqlite.Options{
			Dir:          d.Location,
			DSN:          d.URL,
			ReadOnly:     d.ReadOnly,
			MaxOpenConns: d.MaxOpenConns,
			MaxIdleConns: d.MaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil
	case FamilyPostgres:
		db, err := postgres.Connect(ctx, postgres.Options{
			URL:               d.URL,
			ReadOnly:          d.ReadOnly,
			MaxConns:          int32(d.MaxOpenConns),
			HealthCheckPeriod: d.HealthCheckPeriod,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database type %q: %w", d.Family, runstore.ErrConfiguration)
	}
}

// Initialize creates an empty store at the location described by d. It is a
// no-op when the store already exists.
func Initialize(ctx context.Context, d Descriptor) error {
	switch d.Family {
	case FamilySQLite:
		if err := sqlite.Initialize(d.Location); err != nil {
			return fmt.Errorf("initialize sqlite: %w", err)
		}
		return nil
	case FamilyPostgres:
		if err := postgres.Initialize(ctx, d.URL); err != nil {
			return fmt.Errorf("initialize postgres: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported database type %q: %w", d.Family, runstore.ErrConfiguration)
	}
}
