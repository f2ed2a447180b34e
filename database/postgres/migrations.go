package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/runstore"
)

const migrationTable = "schema_migrations"

// migrationLockID serializes concurrent migrators across processes.
const migrationLockID int64 = 0x72756e73746f7265

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
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name TEXT NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				is_archived BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE TABLE IF NOT EXISTS tags (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name TEXT NOT NULL UNIQUE,
				color TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				is_archived BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		},
	},
	{
		Version: 2,
		Name:    "create_runs",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS runs (
				hash TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				experiment_id UUID REFERENCES experiments (id) ON DELETE SET NULL,
				is_archived BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_experiment_id ON runs (experiment_id)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_active_list ON runs (created_at, hash) WHERE (is_archived = FALSE)`,
		},
	},
	{
		Version: 3,
		Name:    "create_run_tags",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS run_tags (
				run_hash TEXT NOT NULL REFERENCES runs (hash) ON DELETE CASCADE,
				tag_id UUID NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
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

// Migrate applies every migration newer than the recorded schema version
// inside a single transaction holding an advisory lock. A recorded version
// newer than LatestVersion returns runstore.ErrIncompatibleSchema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}

	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, pgx.Identifier{migrationTable}.Sanitize())
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	var current int
	versionSQL := fmt.Sprintf(`SELECT COALESCE(MAX(version), 0) FROM %s`, pgx.Identifier{migrationTable}.Sanitize())
	if err := tx.QueryRow(ctx, versionSQL).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if latest := LatestVersion(); current > latest {
		return fmt.Errorf("schema version %d is newer than supported version %d: %w", current, latest, runstore.ErrIncompatibleSchema)
	}

	insertSQL := fmt.Sprintf(`INSERT INTO %s (version, name) VALUES ($1, $2)`, pgx.Identifier{migrationTable}.Sanitize())
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		for _, stmt := range m.Statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate up %d_%s: %w", m.Version, m.Name, err)
			}
		}
		if _, err := tx.Exec(ctx, insertSQL, m.Version, m.Name); err != nil {
			return fmt.Errorf("migrate up %d_%s: record: %w", m.Version, m.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration version, or 0 when no
// migration has run.
func SchemaVersion(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var exists bool
	err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+migrationTable).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	query := fmt.Sprintf(`SELECT COALESCE(MAX(version), 0) FROM %s`, pgx.Identifier{migrationTable}.Sanitize())
	if err := pool.QueryRow(ctx, query).Scan(&version); err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return version, nil
}

// DropTables drops the migration ledger and every migrated table.
func DropTables(ctx context.Context, pool *pgxpool.Pool) error {
	names := append([]string{migrationTable}, tableNames...)
	for _, name := range names {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{name}.Sanitize())
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
	}
	return nil
}
