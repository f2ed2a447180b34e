package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/runstore"
)

const migrationTable = "schema_migrations"

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// tableNames lists every table created by migrations, in creation order.
var tableNames = []string{"experiments", "tags", "runs", "run_tags"}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_experiments_and_tags",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS experiments (
				id TEXT NOT NULL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				is_archived INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS tags (
				id TEXT NOT NULL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				color TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				is_archived INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
		},
	},
	{
		Version: 2,
		Name:    "create_runs",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS runs (
				hash TEXT NOT NULL PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				experiment_id TEXT REFERENCES experiments (id) ON DELETE SET NULL,
				is_archived INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_experiment_id ON runs (experiment_id)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at, hash)`,
		},
	},
	{
		Version: 3,
		Name:    "create_run_tags",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS run_tags (
				run_hash TEXT NOT NULL REFERENCES runs (hash) ON DELETE CASCADE,
				tag_id TEXT NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
				PRIMARY KEY (run_hash, tag_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_run_tags_tag_id ON run_tags (tag_id)`,
		},
	},
}

// Migrations returns the ordered migration list.
func Migrations() []Migration {
	out := make([]Migration, len(migrations))
	copy(out, migrations)
	return out
}

// LatestVersion is the schema version this release migrates to.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// Migrate applies every migration newer than the recorded schema version,
// each in its own transaction. A recorded version newer than LatestVersion
// returns runstore.ErrIncompatibleSchema.
func Migrate(ctx context.Context, db *sql.DB) error {
	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER NOT NULL PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`, quoteIdentifier(migrationTable))
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	if latest := LatestVersion(); current > latest {
		return fmt.Errorf("schema version %d is newer than supported version %d: %w", current, latest, runstore.ErrIncompatibleSchema)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("migrate up %d_%s: %w", m.Version, m.Name, err)
		}
	}

	return nil
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var found int
	checkSQL := fmt.Sprintf(`SELECT 1 FROM %s WHERE version = ?`, quoteIdentifier(migrationTable))
	err = tx.QueryRowContext(ctx, checkSQL, m.Version).Scan(&found)
	if err == nil {
		// applied concurrently by another connection
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check applied: %w", err)
	}

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	insertSQL := fmt.Sprintf(`INSERT INTO %s (version, name, applied_at) VALUES (?, ?, ?)`, quoteIdentifier(migrationTable))
	if _, err := tx.ExecContext(ctx, insertSQL, m.Version, m.Name, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration version, or 0 when no
// migration has run.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, migrationTable).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	var version sql.NullInt64
	query := fmt.Sprintf(`SELECT MAX(version) FROM %s`, quoteIdentifier(migrationTable))
	if err := db.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return int(version.Int64), nil
}

// DropTables drops the migration ledger, then every migrated table with
// dependents first. SQLite has no CASCADE, so order matters.
func DropTables(ctx context.Context, db *sql.DB) error {
	drop := func(name string) error {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(name))
		if _, err := db.ExecContext(ctx, dropSQL); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
		return nil
	}

	if err := drop(migrationTable); err != nil {
		return err
	}
	for i := len(tableNames) - 1; i >= 0; i-- {
		if err := drop(tableNames[i]); err != nil {
			return err
		}
	}
	return nil
}
