// Package sqlite implements the repo interface using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/runstore"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	defaultRunLimit = 100
	maxRunLimit     = 1000
)

type repo struct {
	db *sql.DB
}

// mapError attaches the matching runstore sentinel to constraint violations.
func mapError(err error) error {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %w", runstore.ErrAlreadyExists, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %w", runstore.ErrNotFound, err)
	}
	if se.Code()&0xff == sqlite3.SQLITE_READONLY {
		return fmt.Errorf("%w: %w", runstore.ErrReadOnly, err)
	}
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func (r *repo) CreateExperiment(ctx context.Context, e runstore.NewExperiment) (runstore.Experiment, error) {
	if err := e.Validate(); err != nil {
		return runstore.Experiment{}, fmt.Errorf("create experiment: %w", err)
	}

	id := uuid.New()
	createdAt := now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, description, is_archived, created_at) VALUES (?, ?, ?, 0, ?)`,
		id.String(), e.Name, e.Description, createdAt,
	)
	if err != nil {
		return runstore.Experiment{}, fmt.Errorf("create experiment: %w", mapError(err))
	}

	ts, _ := parseTime(createdAt)
	return runstore.Experiment{
		ID:          id,
		Name:        e.Name,
		Description: e.Description,
		CreatedAt:   ts,
	}, nil
}

func (r *repo) ListExperiments(ctx context.Context) ([]runstore.Experiment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, is_archived, created_at FROM experiments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []runstore.Experiment
	for rows.Next() {
		var e runstore.Experiment
		var idStr, createdAt string

		if err := rows.Scan(&idStr, &e.Name, &e.Description, &e.IsArchived, &createdAt); err != nil {
			return nil, fmt.Errorf("list experiments: scan: %w", err)
		}
		if e.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("list experiments: parse uuid: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("list experiments: parse created_at: %w", err)
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

	id := uuid.New()
	createdAt := now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tags (id, name, color, description, is_archived, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		id.String(), t.Name, t.Color, t.Description, createdAt,
	)
	if err != nil {
		return runstore.Tag{}, fmt.Errorf("create tag: %w", mapError(err))
	}

	ts, _ := parseTime(createdAt)
	return runstore.Tag{
		ID:          id,
		Name:        t.Name,
		Color:       t.Color,
		Description: t.Description,
		CreatedAt:   ts,
	}, nil
}

func (r *repo) DeleteTag(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete tag: %w", mapError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tag: rows affected: %w", err)
	}
	if n == 0 {
		return runstore.ErrNotFound
	}
	return nil
}

func (r *repo) ListTags(ctx context.Context) ([]runstore.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, description, is_archived, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []runstore.Tag
	for rows.Next() {
		var t runstore.Tag
		var idStr, createdAt string

		if err := rows.Scan(&idStr, &t.Name, &t.Color, &t.Description, &t.IsArchived, &createdAt); err != nil {
			return nil, fmt.Errorf("list tags: scan: %w", err)
		}
		if t.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("list tags: parse uuid: %w", err)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("list tags: parse created_at: %w", err)
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags: rows: %w", err)
	}
	return out, nil
}

func (r *repo) CreateRun(ctx context.Context, nr runstore.NewRun) (runstore.Run, error) {
	if err := nr.Validate(); err != nil {
		return runstore.Run{}, fmt.Errorf("create run: %w", err)
	}

	var experimentID sql.NullString
	if nr.ExperimentID != nil {
		experimentID = sql.NullString{String: nr.ExperimentID.String(), Valid: true}
	}
	ts := now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (hash, name, experiment_id, is_archived, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		nr.Hash, nr.Name, experimentID, ts, ts,
	)
	if err != nil {
		return runstore.Run{}, fmt.Errorf("create run: %w", mapError(err))
	}

	created, _ := parseTime(ts)
	return runstore.Run{
		Hash:         nr.Hash,
		Name:         nr.Name,
		ExperimentID: nr.ExperimentID,
		CreatedAt:    created,
		UpdatedAt:    created,
	}, nil
}

const runColumns = `hash, name, experiment_id, is_archived, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (runstore.Run, error) {
	var run runstore.Run
	var experimentID sql.NullString
	var createdAt, updatedAt string

	if err := s.Scan(&run.Hash, &run.Name, &experimentID, &run.IsArchived, &createdAt, &updatedAt); err != nil {
		return runstore.Run{}, err
	}

	if experimentID.Valid {
		id, err := uuid.Parse(experimentID.String)
		if err != nil {
			return runstore.Run{}, fmt.Errorf("parse experiment_id: %w", err)
		}
		run.ExperimentID = &id
	}

	var err error
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return runstore.Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	if run.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return runstore.Run{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return run, nil
}

func (r *repo) GetRun(ctx context.Context, hash string) (runstore.Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE hash = ?`, hash)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
		where = append(where, "experiment_id = ?")
		args = append(args, q.ExperimentID.String())
	}
	if !q.IncludeArchived {
		where = append(where, "is_archived = 0")
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
	query += ` ORDER BY created_at DESC, hash LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO run_tags (run_hash, tag_id) VALUES (?, ?) ON CONFLICT (run_hash, tag_id) DO NOTHING`,
		hash, tagID.String(),
	)
	if err != nil {
		return fmt.Errorf("add run tag: %w", mapError(err))
	}
	return nil
}

func (r *repo) RemoveRunTag(ctx context.Context, hash string, tagID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM run_tags WHERE run_hash = ? AND tag_id = ?`, hash, tagID.String())
	if err != nil {
		return fmt.Errorf("remove run tag: %w", mapError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove run tag: rows affected: %w", err)
	}
	if n == 0 {
		return runstore.ErrNotFound
	}
	return nil
}

func (r *repo) ListRunTagIDs(ctx context.Context, hash string) ([]uuid.UUID, error) {
	var found int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE hash = ?`, hash).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, runstore.ErrNotFound
		}
		return nil, fmt.Errorf("list run tags: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT tag_id FROM run_tags WHERE run_hash = ? ORDER BY tag_id`, hash)
	if err != nil {
		return nil, fmt.Errorf("list run tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("list run tags: scan: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("list run tags: parse uuid: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list run tags: rows: %w", err)
	}
	return ids, nil
}
