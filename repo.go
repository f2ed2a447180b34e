package runstore

import (
	"context"

	"github.com/google/uuid"
)

// Repo persists experiments, tags and runs in a structured backend.
type Repo interface {
	CreateExperiment(ctx context.Context, e NewExperiment) (Experiment, error)
	ListExperiments(ctx context.Context) ([]Experiment, error)

	CreateTag(ctx context.Context, t NewTag) (Tag, error)
	DeleteTag(ctx context.Context, id uuid.UUID) error
	ListTags(ctx context.Context) ([]Tag, error)

	CreateRun(ctx context.Context, r NewRun) (Run, error)
	GetRun(ctx context.Context, hash string) (Run, error)
	ListRuns(ctx context.Context, q RunQuery) ([]Run, error)

	AddRunTag(ctx context.Context, hash string, tagID uuid.UUID) error
	RemoveRunTag(ctx context.Context, hash string, tagID uuid.UUID) error
	ListRunTagIDs(ctx context.Context, hash string) ([]uuid.UUID, error)
}
