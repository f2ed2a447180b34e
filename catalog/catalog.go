// Package catalog serves experiments, tags and runs from a store, keeping the
// small, frequently read tables in the store's named caches.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/cache"
)

// Cache names registered on the store.
const (
	ExperimentsCache = "experiments"
	TagsCache        = "tags"
)

// Store is the subset of a pooled handle the catalog needs.
type Store interface {
	Repo() runstore.Repo
	Caches() *cache.Set
	ReadOnly() bool
	EnsureMigrated(ctx context.Context) error
}

// Catalog resolves its caches through the store on every access, so an
// invalidated cache is re-registered and reloaded on the next read.
type Catalog struct {
	store Store
	repo  runstore.Repo
}

// RunDetail is a run together with its resolved tags.
type RunDetail struct {
	runstore.Run
	Tags []runstore.Tag `json:"tags"`
}

// Open migrates a writable store and registers the catalog caches on it.
// Caches already registered by another Catalog on the same store are shared.
func Open(ctx context.Context, s Store) (*Catalog, error) {
	if !s.ReadOnly() {
		if err := s.EnsureMigrated(ctx); err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
	}

	c := &Catalog{store: s, repo: s.Repo()}

	if _, err := c.experiments(); err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := c.tags(); err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	return c, nil
}

func (c *Catalog) experiments() (*cache.Lazy[string, runstore.Experiment], error) {
	return cache.Register(c.store.Caches(), ExperimentsCache,
		cache.Producer[runstore.Experiment](c.repo.ListExperiments),
		func(e runstore.Experiment) string { return e.Name },
	)
}

func (c *Catalog) tags() (*cache.Lazy[uuid.UUID, runstore.Tag], error) {
	return cache.Register(c.store.Caches(), TagsCache,
		cache.Producer[runstore.Tag](c.repo.ListTags),
		func(t runstore.Tag) uuid.UUID { return t.ID },
	)
}

// Experiments returns every experiment ordered by name.
func (c *Catalog) Experiments(ctx context.Context) ([]runstore.Experiment, error) {
	experiments, err := c.experiments()
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	out, err := experiments.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Experiment returns the experiment called name. A name the cache does not
// know may have been created elsewhere; the experiment cache is reloaded once
// before reporting it missing.
func (c *Catalog) Experiment(ctx context.Context, name string) (runstore.Experiment, error) {
	e, ok, err := c.lookupExperiment(ctx, name)
	if err != nil {
		return runstore.Experiment{}, fmt.Errorf("get experiment: %w", err)
	}
	if !ok {
		slog.Debug("experiment cache stale, reloading", "experiment", name)
		c.store.Caches().Invalidate(ExperimentsCache)
		if e, ok, err = c.lookupExperiment(ctx, name); err != nil {
			return runstore.Experiment{}, fmt.Errorf("get experiment: %w", err)
		}
	}
	if !ok {
		return runstore.Experiment{}, fmt.Errorf("get experiment %s: %w", name, runstore.ErrNotFound)
	}
	return e, nil
}

func (c *Catalog) lookupExperiment(ctx context.Context, name string) (runstore.Experiment, bool, error) {
	experiments, err := c.experiments()
	if err != nil {
		return runstore.Experiment{}, false, err
	}
	return experiments.Lookup(ctx, name)
}

func (c *Catalog) CreateExperiment(ctx context.Context, ne runstore.NewExperiment) (runstore.Experiment, error) {
	e, err := c.repo.CreateExperiment(ctx, ne)
	if err != nil {
		return runstore.Experiment{}, err
	}
	if experiments, err := c.experiments(); err == nil {
		remember(experiments, e.Name, e)
	}
	return e, nil
}

// Tags returns every tag ordered by name.
func (c *Catalog) Tags(ctx context.Context) ([]runstore.Tag, error) {
	tags, err := c.tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	out, err := tags.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Catalog) Tag(ctx context.Context, id uuid.UUID) (runstore.Tag, error) {
	tags, err := c.tags()
	if err != nil {
		return runstore.Tag{}, fmt.Errorf("get tag: %w", err)
	}
	t, ok, err := tags.Lookup(ctx, id)
	if err != nil {
		return runstore.Tag{}, fmt.Errorf("get tag: %w", err)
	}
	if !ok {
		return runstore.Tag{}, fmt.Errorf("get tag %s: %w", id, runstore.ErrNotFound)
	}
	return t, nil
}

func (c *Catalog) CreateTag(ctx context.Context, nt runstore.NewTag) (runstore.Tag, error) {
	t, err := c.repo.CreateTag(ctx, nt)
	if err != nil {
		return runstore.Tag{}, err
	}
	if tags, err := c.tags(); err == nil {
		remember(tags, t.ID, t)
	}
	return t, nil
}

func (c *Catalog) DeleteTag(ctx context.Context, id uuid.UUID) error {
	if err := c.repo.DeleteTag(ctx, id); err != nil {
		return err
	}
	if tags, err := c.tags(); err == nil {
		tags.Delete(id)
	}
	return nil
}

// Run returns a run with its tags. Tag ids the cache does not know yet were
// created elsewhere; the tag cache is reloaded once to pick them up.
func (c *Catalog) Run(ctx context.Context, hash string) (RunDetail, error) {
	run, err := c.repo.GetRun(ctx, hash)
	if err != nil {
		return RunDetail{}, fmt.Errorf("get run %s: %w", hash, err)
	}

	ids, err := c.repo.ListRunTagIDs(ctx, hash)
	if err != nil {
		return RunDetail{}, fmt.Errorf("get run %s: %w", hash, err)
	}

	tags, missing, err := c.resolveTags(ctx, ids)
	if err != nil {
		return RunDetail{}, fmt.Errorf("get run %s: %w", hash, err)
	}
	if missing > 0 {
		slog.Debug("tag cache stale, reloading", "run", hash, "missing", missing)
		c.store.Caches().Invalidate(TagsCache)
		if tags, _, err = c.resolveTags(ctx, ids); err != nil {
			return RunDetail{}, fmt.Errorf("get run %s: %w", hash, err)
		}
	}

	return RunDetail{Run: run, Tags: tags}, nil
}

func (c *Catalog) resolveTags(ctx context.Context, ids []uuid.UUID) ([]runstore.Tag, int, error) {
	cached, err := c.tags()
	if err != nil {
		return nil, 0, err
	}

	tags := make([]runstore.Tag, 0, len(ids))
	missing := 0
	for _, id := range ids {
		t, ok, err := cached.Lookup(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			missing++
			continue
		}
		tags = append(tags, t)
	}
	return tags, missing, nil
}

func (c *Catalog) Runs(ctx context.Context, q runstore.RunQuery) ([]runstore.Run, error) {
	return c.repo.ListRuns(ctx, q)
}

// CreateRun records a run. A non-empty experiment is resolved by name and
// must exist.
func (c *Catalog) CreateRun(ctx context.Context, nr runstore.NewRun, experiment string) (runstore.Run, error) {
	if experiment != "" {
		e, err := c.Experiment(ctx, experiment)
		if err != nil {
			return runstore.Run{}, fmt.Errorf("create run: %w", err)
		}
		nr.ExperimentID = &e.ID
	}
	return c.repo.CreateRun(ctx, nr)
}

// TagRun attaches a known tag to a run. Attaching twice is a no-op.
func (c *Catalog) TagRun(ctx context.Context, hash string, tagID uuid.UUID) error {
	if _, err := c.Tag(ctx, tagID); err != nil {
		return fmt.Errorf("tag run %s: %w", hash, err)
	}
	if err := c.repo.AddRunTag(ctx, hash, tagID); err != nil {
		return fmt.Errorf("tag run %s: %w", hash, err)
	}
	return nil
}

func (c *Catalog) UntagRun(ctx context.Context, hash string, tagID uuid.UUID) error {
	if err := c.repo.RemoveRunTag(ctx, hash, tagID); err != nil {
		return fmt.Errorf("untag run %s: %w", hash, err)
	}
	return nil
}

// Refresh drops both catalog caches; the next read reloads them.
func (c *Catalog) Refresh() {
	c.store.Caches().Invalidate(ExperimentsCache)
	c.store.Caches().Invalidate(TagsCache)
}

// remember adds v to a materialized cache. An unmaterialized cache picks the
// row up when it loads.
func remember[K comparable, V any](l *cache.Lazy[K, V], key K, v V) {
	if err := l.Set(key, v); err != nil && !cache.IsNotMaterialized(err) {
		slog.Warn("failed to update cache", "err", err)
	}
}
