package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/runstore"

	_ "modernc.org/sqlite" // SQLite driver
)

// Options configures a SQLite connection.
type Options struct {
	// Dir is the store directory; it must already exist.
	Dir string
	// DSN is the file path with pragma parameters, as built by DSN.
	DSN          string
	ReadOnly     bool
	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns a modernc.org/sqlite data source name for file with foreign keys
// enforced and the given busy timeout, applied to every pooled connection.
func DSN(file string, busyTimeout time.Duration) string {
	return file +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(" + strconv.FormatInt(busyTimeout.Milliseconds(), 10) + ")" +
		"&_pragma=journal_mode(WAL)"
}

// database provides SQLite database operations.
type database struct {
	db *sql.DB
}

// Connect opens a pooled connection to the SQLite file inside opts.Dir.
// A missing directory returns runstore.ErrNotInitialized, as does a missing
// database file when opts.ReadOnly is set.
func Connect(ctx context.Context, opts Options) (*database, error) {
	info, err := os.Stat(opts.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("connect sqlite: cannot find store %s: %w", opts.Dir, runstore.ErrNotInitialized)
		}
		return nil, fmt.Errorf("connect sqlite: stat %s: %w", opts.Dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("connect sqlite: %s is not a directory: %w", opts.Dir, runstore.ErrNotInitialized)
	}

	dsn := opts.DSN
	if opts.ReadOnly {
		file, _, _ := strings.Cut(dsn, "?")
		if _, err = os.Stat(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("connect sqlite: no database in %s: %w", opts.Dir, runstore.ErrNotInitialized)
			}
			return nil, fmt.Errorf("connect sqlite: stat %s: %w", file, err)
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=query_only(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &database{db: db}, nil
}

// Initialize creates the store directory if it does not exist.
func Initialize(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SchemaVersion returns the latest applied migration version.
func (d *database) SchemaVersion(ctx context.Context) (int, error) {
	return SchemaVersion(ctx, d.db)
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db)
}

// Repo returns the repository for structured data.
func (d *database) Repo() runstore.Repo {
	return &repo{db: d.db}
}

// DB returns the underlying pool.
func (d *database) DB() *sql.DB {
	return d.db
}

// DropTables drops all tables in reverse migration order.
func (d *database) DropTables(ctx context.Context) error {
	return DropTables(ctx, d.db)
}

// Close closes the database connection.
func (d *database) Close() error {
	return d.db.Close()
}
