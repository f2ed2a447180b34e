// Package postgres implements the repo interface using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/runstore"
)

const (
	defaultRunLimit = 100
	maxRunLimit     = 1000
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	readOnlyTransaction = "25006"
)

type repo struct {
	pool *pgxpool.Pool
}

// mapError attaches the matching runstore sentinel to constraint violations.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %w", runstore.ErrAlreadyExists, err)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %w", runstore.ErrNotFound, err)
	case readOnlyTransaction:
		return fmt.Errorf("%w: %w", runstore.ErrReadOnly, err)
	}
	return err
}

func (r *repo) CreateExperiment(ctx context.Context, e runstore.NewExperiment) (runstore.Experiment, error) {
	if err := e.Validate(); err != nil {
		return runstore.Experiment{}, fmt.Errorf("create experiment: %w", err)
	}

	var out runstore.Experiment
	err := r.pool.QueryRow(ctx, `
		INSERT INTO experiments (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, is_archived, created_at
	`, e.Name, e.Description).Scan(&out.ID, &out.Name, &out.Description, &out.IsArchived, &out.CreatedAt)
	if err != nil {
		return runstore.Experiment{}, fmt.Errorf("create experiment: %w", mapError(err))
	}
	return out, nil
}

func (r *repo) ListExperiments(ctx context.Context) ([]runstore.Experiment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, is_archived, created_at FROM experiments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer rows.Close()

	var out []runstore.Experiment
	for rows.Next() {
		var e runstore.Experiment
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.IsArchived, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("list experiments: scan: %w", err)
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list experiments: rows: %w", err)
	}
	return out, nil
}

func (r *repo) CreateTag(ctx context.Context, t runstore.NewTag) (runstore.Tag, error) {
	if err := t.Validate(); err != nil {
		return runstore.Tag{}, fmt.Errorf("create tag: %w", err)
	}

	var out runstore.Tag
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tags (name, color, description)
		VALUES ($1, $2, $3)
		RETURNING id, name, color, description, is_archived, created_at
	`, t.Name, t.Color, t.Description).Scan(&out.ID, &out.Name, &out.Color, &out.Description, &out.IsArchived, &out.CreatedAt)
	if err != nil {
		return runstore.Tag{}, fmt.Errorf("create tag: %w", mapError(err))
	}
	return out, nil
}

func (r *repo) DeleteTag(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return runstore.ErrNotFound
	}
	return nil
}

func (r *repo) ListTags(ctx context.Context) ([]runstore.Tag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, color, description, is_archived, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []runstore.Tag
	for rows.Next() {
		var t runstore.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Description, &t.IsArchived, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("list tags: scan: %w", err)
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags: rows: %w", err)
	}
	return out, nil
}

const runColumns = `hash, name, experiment_id, is_archived, created_at, updated_at`

func scanRun(row pgx.Row) (runstore.Run, error) {
	var run runstore.Run
	err := row.Scan(&run.Hash, &run.Name, &run.ExperimentID, &run.IsArchived, &run.CreatedAt, &run.UpdatedAt)
	return run, err
}

func (r *repo) CreateRun(ctx context.Context, nr runstore.NewRun) (runstore.Run, error) {
	if err := nr.Validate(); err != nil {
		return runstore.Run{}, fmt.Errorf("create run: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO runs (hash, name, experiment_id)
		VALUES ($1, $2, $3)
		RETURNING `+runColumns, nr.Hash, nr.Name, nr.ExperimentID)

	run, err := scanRun(row)
	if err != nil {
		return runstore.Run{}, fmt.Errorf("create run: %w", mapError(err))
	}
	return run, nil
}

func (r *repo) GetRun(ctx context.Context, hash string) (runstore.Run, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE hash = $1`, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return runstore.Run{}, runstore.ErrNotFound
		}
		return runstore.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (r *repo) ListRuns(ctx context.Context, q runstore.RunQuery) ([]runstore.Run, error) {
	var where []string
	var args []any

	if q.ExperimentID != nil {
		args = append(args, *q.ExperimentID)
		where = append(where, fmt.Sprintf("experiment_id = $%d", len(args)))
	}
	if !q.IncludeArchived {
		where = append(where, "is_archived = FALSE")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}
	limit = min(limit, maxRunLimit)

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, hash LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []runstore.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		out = append(out, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: rows: %w", err)
	}
	return out, nil
}

func (r *repo) AddRunTag(ctx context.Context, hash string, tagID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO run_tags (run_hash, tag_id) VALUES ($1, $2) ON CONFLICT (run_hash, tag_id) DO NOTHING`,
		hash, tagID,
	)
	if err != nil {
		return fmt.Errorf("add run tag: %w", mapError(err))
	}
	return nil
}

func (r *repo) RemoveRunTag(ctx context.Context, hash string, tagID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM run_tags WHERE run_hash = $1 AND tag_id = $2`, hash, tagID)
	if err != nil {
		return fmt.Errorf("remove run tag: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return runstore.ErrNotFound
	}
	return nil
}

func (r *repo) ListRunTagIDs(ctx context.Context, hash string) ([]uuid.UUID, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM runs WHERE hash = $1)`, hash).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("list run tags: %w", err)
	}
	if !exists {
		return nil, runstore.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, `SELECT tag_id FROM run_tags WHERE run_hash = $1 ORDER BY tag_id`, hash)
	if err != nil {
		return nil, fmt.Errorf("list run tags: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list run tags: scan: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list run tags: rows: %w", err)
	}
	return ids, nil
}
