package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sagarc03/runstore"
)

// invalidCatalogName is the SQLSTATE for a database that does not exist.
const invalidCatalogName = "3D000"

// Options configures a PostgreSQL connection pool.
type Options struct {
	URL               string
	ReadOnly          bool
	MaxConns          int32
	HealthCheckPeriod time.Duration
}

type database struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

// Connect establishes a connection pool to PostgreSQL and verifies it with a
// ping. A database that does not exist returns runstore.ErrNotInitialized.
func Connect(ctx context.Context, opts Options) (*database, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w: %w", runstore.ErrConfiguration, err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = opts.HealthCheckPeriod
	}
	if opts.ReadOnly {
		cfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		if isPgCode(err, invalidCatalogName) {
			return nil, fmt.Errorf("connect postgres: cannot find database %s: %w", cfg.ConnConfig.Database, runstore.ErrNotInitialized)
		}
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &database{
		pool: pool,
		db:   stdlib.OpenDBFromPool(pool),
	}, nil
}

// Initialize creates the database named in url, connecting through the
// server's maintenance database. It is a no-op when the database exists.
func Initialize(ctx context.Context, url string) error {
	cfg, err := pgx.ParseConfig(url)
	if err != nil {
		return fmt.Errorf("parse postgres url: %w: %w", runstore.ErrConfiguration, err)
	}

	name := cfg.Database
	cfg.Database = "postgres"

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect maintenance database: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database exists: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SchemaVersion returns the latest applied migration version.
func (d *database) SchemaVersion(ctx context.Context) (int, error) {
	return SchemaVersion(ctx, d.pool)
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool)
}

// Repo returns the repository for structured data.
func (d *database) Repo() runstore.Repo {
	return &repo{pool: d.pool}
}

// DB returns a database/sql view of the pool.
func (d *database) DB() *sql.DB {
	return d.db
}

// Pool returns the underlying pgx pool.
func (d *database) Pool() *pgxpool.Pool {
	return d.pool
}

// DropTables drops all tables with CASCADE.
func (d *database) DropTables(ctx context.Context) error {
	return DropTables(ctx, d.pool)
}

// Close closes the database connection pool.
func (d *database) Close() error {
	err := d.db.Close()
	d.pool.Close()
	return err
}
