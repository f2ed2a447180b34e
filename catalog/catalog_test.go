package catalog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/cache"
	"github.com/sagarc03/runstore/catalog"
	"github.com/sagarc03/runstore/database"
	"github.com/sagarc03/runstore/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepo is a mock implementation of runstore.Repo
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) CreateExperiment(ctx context.Context, e runstore.NewExperiment) (runstore.Experiment, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(runstore.Experiment), args.Error(1)
}

func (m *MockRepo) ListExperiments(ctx context.Context) ([]runstore.Experiment, error) {
	args := m.Called(ctx)
	return args.Get(0).([]runstore.Experiment), args.Error(1)
}

func (m *MockRepo) CreateTag(ctx context.Context, t runstore.NewTag) (runstore.Tag, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(runstore.Tag), args.Error(1)
}

func (m *MockRepo) DeleteTag(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepo) ListTags(ctx context.Context) ([]runstore.Tag, error) {
	args := m.Called(ctx)
	return args.Get(0).([]runstore.Tag), args.Error(1)
}

func (m *MockRepo) CreateRun(ctx context.Context, r runstore.NewRun) (runstore.Run, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(runstore.Run), args.Error(1)
}

func (m *MockRepo) GetRun(ctx context.Context, hash string) (runstore.Run, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(runstore.Run), args.Error(1)
}

func (m *MockRepo) ListRuns(ctx context.Context, q runstore.RunQuery) ([]runstore.Run, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]runstore.Run), args.Error(1)
}

func (m *MockRepo) AddRunTag(ctx context.Context, hash string, tagID uuid.UUID) error {
	return m.Called(ctx, hash, tagID).Error(0)
}

func (m *MockRepo) RemoveRunTag(ctx context.Context, hash string, tagID uuid.UUID) error {
	return m.Called(ctx, hash, tagID).Error(0)
}

func (m *MockRepo) ListRunTagIDs(ctx context.Context, hash string) ([]uuid.UUID, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type stubStore struct {
	repo     runstore.Repo
	caches   *cache.Set
	readOnly bool
	migrate  error
}

func newStubStore(repo runstore.Repo) *stubStore {
	return &stubStore{repo: repo, caches: cache.NewSet()}
}

func (s *stubStore) Repo() runstore.Repo { return s.repo }
func (s *stubStore) Caches() *cache.Set { return s.caches }
func (s *stubStore) ReadOnly() bool { return s.readOnly }
func (s *stubStore) EnsureMigrated(ctx context.Context) error { return s.migrate }

func TestOpen_MigrationFailure(t *testing.T) {
	store := newStubStore(new(MockRepo))
	store.migrate = runstore.ErrMigration

	_, err := catalog.Open(context.Background(), store)
	assert.ErrorIs(t, err, runstore.ErrMigration)
}

func TestOpen_SharesCachesPerStore(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	repo.On("ListExperiments", mock.Anything).Return([]runstore.Experiment{{ID: uuid.New(), Name: "baseline"}}, nil).Once()
	store := newStubStore(repo)

	a, err := catalog.Open(ctx, store)
	require.NoError(t, err)
	b, err := catalog.Open(ctx, store)
	require.NoError(t, err)

	_, err = a.Experiment(ctx, "baseline")
	require.NoError(t, err)
	_, err = b.Experiment(ctx, "baseline")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{catalog.ExperimentsCache, catalog.TagsCache}, store.caches.Names())
	repo.AssertNumberOfCalls(t, "ListExperiments", 1)
}

func TestCatalog_Experiment_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	repo.On("ListExperiments", mock.Anything).Return([]runstore.Experiment{}, nil).Twice()

	c, err := catalog.Open(ctx, newStubStore(repo))
	require.NoError(t, err)

	_, err = c.Experiment(ctx, "missing")
	assert.ErrorIs(t, err, runstore.ErrNotFound)
	repo.AssertNumberOfCalls(t, "ListExperiments", 2)
}

func TestCatalog_Experiment_ReloadsOnMiss(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	repo.On("ListExperiments", mock.Anything).Return([]runstore.Experiment{{Name: "a"}}, nil).Once()
	repo.On("ListExperiments", mock.Anything).Return([]runstore.Experiment{{Name: "a"}, {Name: "b"}}, nil).Once()
	repo.On("ListExperiments", mock.Anything).Return([]runstore.Experiment{{Name: "a"}, {Name: "b"}}, nil).Once()

	c, err := catalog.Open(ctx, newStubStore(repo))
	require.NoError(t, err)

	_, err = c.Experiment(ctx, "a")
	require.NoError(t, err)

	e, err := c.Experiment(ctx, "b")
	require.NoError(t, err, "an experiment created elsewhere is found after one reload")
	assert.Equal(t, "b", e.Name)

	_, err = c.Experiment(ctx, "b")
	require.NoError(t, err)

	_, err = c.Experiment(ctx, "c")
	assert.ErrorIs(t, err, runstore.ErrNotFound, "a second miss still reports not found")
	repo.AssertExpectations(t)
}

func TestCatalog_ProducerErrorIsRetried(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	repo.On("ListTags", mock.Anything).Return([]runstore.Tag(nil), errors.New("connection reset")).Once()
	repo.On("ListTags", mock.Anything).Return([]runstore.Tag{{ID: uuid.New(), Name: "x"}}, nil).Once()

	c, err := catalog.Open(ctx, newStubStore(repo))
	require.NoError(t, err)

	_, err = c.Tags(ctx)
	require.Error(t, err)

	tags, err := c.Tags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
	repo.AssertExpectations(t)
}

func TestCatalog_CreateTag_UpdatesMaterializedCache(t *testing.T) {
	ctx := context.Background()
	existing := runstore.Tag{ID: uuid.New(), Name: "a"}
	created := runstore.Tag{ID: uuid.New(), Name: "b"}

	repo := new(MockRepo)
	repo.On("ListTags", mock.Anything).Return([]runstore.Tag{existing}, nil).Once()
	repo.On("CreateTag", mock.Anything, runstore.NewTag{Name: "b"}).Return(created, nil).Once()

	c, err := catalog.Open(ctx, newStubStore(repo))
	require.NoError(t, err)

	_, err = c.Tags(ctx)
	require.NoError(t, err)

	_, err = c.CreateTag(ctx, runstore.NewTag{Name: "b"})
	require.NoError(t, err)

	got, err := c.Tag(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name)
	repo.AssertNumberOfCalls(t, "ListTags", 1)
}

func TestCatalog_CreateTag_BeforeMaterialization(t *testing.T) {
	ctx := context.Background()
	created := runstore.Tag{ID: uuid.New(), Name: "b"}

	repo := new(MockRepo)
	repo.On("CreateTag", mock.Anything, runstore.NewTag{Name: "b"}).Return(created, nil).Once()

	c, err := catalog.Open(ctx, newStubStore(repo))
	require.NoError(t, err)

	_, err = c.CreateTag(ctx, runstore.NewTag{Name: "b"})
	require.NoError(t, err, "an unread cache is left for the next load")
	repo.AssertNotCalled(t, "ListTags", mock.Anything)
}

func TestCatalog_Run_ReloadsStaleTags(t *testing.T) {
	ctx := context.Background()
	known := runstore.Tag{ID: uuid.New(), Name: "known"}
	added := runstore.Tag{ID: uuid.New(), Name: "added-elsewhere"}

	repo := new(MockRepo)
	repo.On("ListTags", mock.Anything).Return([]runstore.Tag{known}, nil).Once()
	repo.On("ListTags", mock.Anything).Return([]runstore.Tag{known, added}, nil).Once()
	repo.On("GetRun", mock.Anything, "abc").Return(runstore.Run{Hash: "abc"}, nil)
	repo.On("ListRunTagIDs", mock.Anything, "abc").Return([]uuid.UUID{known.ID, added.ID}, nil)

	c, err := catalog.Open(ctx, newStubStore(repo))
	require.NoError(t, err)

	_, err = c.Tags(ctx)
	require.NoError(t, err)

	run, err := c.Run(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", run.Hash)
	require.Len(t, run.Tags, 2)
	assert.Equal(t, "added-elsewhere", run.Tags[1].Name)
	repo.AssertExpectations(t)
}

func TestCatalog_InvalidationReloads(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	repo.On("ListExperiments", mock.Anything).Return([]runstore.Experiment{{Name: "a"}}, nil).Once()
	repo.On("ListExperiments", mock.Anything).Return([]runstore.Experiment{{Name: "a"}, {Name: "b"}}, nil).Once()
	store := newStubStore(repo)

	c, err := catalog.Open(ctx, store)
	require.NoError(t, err)

	exps, err := c.Experiments(ctx)
	require.NoError(t, err)
	assert.Len(t, exps, 1)

	store.caches.InvalidateAll()

	exps, err = c.Experiments(ctx)
	require.NoError(t, err)
	assert.Len(t, exps, 2)
	repo.AssertExpectations(t)
}

func TestCatalog_ReadOnlySkipsMigration(t *testing.T) {
	store := newStubStore(new(MockRepo))
	store.readOnly = true
	store.migrate = errors.New("must not be called")

	_, err := catalog.Open(context.Background(), store)
	assert.NoError(t, err)
}

// openSQLiteCatalog returns a catalog over a freshly initialized store.
func openSQLiteCatalog(t *testing.T) (*catalog.Catalog, *pool.Handle) {
	t.Helper()
	ctx := context.Background()

	backend, err := database.Config{Type: "sqlite"}.Backend()
	require.NoError(t, err)

	reg := pool.NewRegistry(backend)
	t.Cleanup(func() { _ = reg.Close() })

	h, err := reg.Init(ctx, filepath.Join(t.TempDir(), ".runstore"))
	require.NoError(t, err)

	c, err := catalog.Open(ctx, h)
	require.NoError(t, err)
	return c, h
}

func TestCatalog_SQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, h := openSQLiteCatalog(t)

	exp, err := c.CreateExperiment(ctx, runstore.NewExperiment{Name: "default"})
	require.NoError(t, err)

	exps, err := c.Experiments(ctx)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, exp.ID, exps[0].ID)

	tag, err := c.CreateTag(ctx, runstore.NewTag{Name: "best", Color: "#0f0"})
	require.NoError(t, err)

	run, err := c.CreateRun(ctx, runstore.NewRun{Hash: "abc123"}, "default")
	require.NoError(t, err)
	require.NotNil(t, run.ExperimentID)
	assert.Equal(t, exp.ID, *run.ExperimentID)

	_, err = c.CreateRun(ctx, runstore.NewRun{Hash: "def456"}, "nope")
	assert.ErrorIs(t, err, runstore.ErrNotFound)

	require.NoError(t, c.TagRun(ctx, run.Hash, tag.ID))
	assert.ErrorIs(t, c.TagRun(ctx, run.Hash, uuid.New()), runstore.ErrNotFound)

	detail, err := c.Run(ctx, run.Hash)
	require.NoError(t, err)
	require.Len(t, detail.Tags, 1)
	assert.Equal(t, "best", detail.Tags[0].Name)

	runs, err := c.Runs(ctx, runstore.RunQuery{ExperimentID: &exp.ID})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	require.NoError(t, c.UntagRun(ctx, run.Hash, tag.ID))
	require.NoError(t, c.DeleteTag(ctx, tag.ID))
	_, err = c.Tag(ctx, tag.ID)
	assert.ErrorIs(t, err, runstore.ErrNotFound)

	_, err = h.Repo().CreateExperiment(ctx, runstore.NewExperiment{Name: "direct"})
	require.NoError(t, err)
	exps, err = c.Experiments(ctx)
	require.NoError(t, err)
	assert.Len(t, exps, 1, "listing serves the cache until it is refreshed")

	_, err = c.Experiment(ctx, "direct")
	require.NoError(t, err, "a cache miss reloads experiments written around the catalog")
	exps, err = c.Experiments(ctx)
	require.NoError(t, err)
	assert.Len(t, exps, 2)

	c.Refresh()
	assert.Empty(t, h.Caches().Names())

	_, err = c.Experiment(ctx, "direct")
	require.NoError(t, err)

	exps2, ok := cache.Lookup[string, runstore.Experiment](h.Caches(), catalog.ExperimentsCache)
	require.True(t, ok)
	assert.True(t, exps2.Materialized())
}
