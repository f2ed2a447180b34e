package runstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Experiment struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewExperiment struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Tag struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color,omitempty"`
	Description string    `json:"description,omitempty"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewTag struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

type Run struct {
	Hash         string     `json:"hash"`
	Name         string     `json:"name,omitempty"`
	ExperimentID *uuid.UUID `json:"experiment_id,omitempty"`
	IsArchived   bool       `json:"is_archived"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type NewRun struct {
	Hash         string     `json:"hash"`
	Name         string     `json:"name"`
	ExperimentID *uuid.UUID `json:"experiment_id"`
}

type RunQuery struct {
	ExperimentID    *uuid.UUID
	IncludeArchived bool
	Limit           int
}

// Validate checks the experiment name.
func (e NewExperiment) Validate() error {
	if !IsValidName(e.Name) {
		return fmt.Errorf("validate experiment: invalid name %q: %w", e.Name, ErrInvalidInput)
	}
	return nil
}

// Validate checks the tag name and color.
func (t NewTag) Validate() error {
	if !IsValidName(t.Name) {
		return fmt.Errorf("validate tag: invalid name %q: %w", t.Name, ErrInvalidInput)
	}
	if t.Color != "" && !IsValidColor(t.Color) {
		return fmt.Errorf("validate tag: invalid color %q: %w", t.Color, ErrInvalidInput)
	}
	return nil
}

// Validate checks the run hash and name.
func (r NewRun) Validate() error {
	if !IsValidRunHash(r.Hash) {
		return fmt.Errorf("validate run: invalid hash %q: %w", r.Hash, ErrInvalidInput)
	}
	if r.Name != "" && !IsValidName(r.Name) {
		return fmt.Errorf("validate run: invalid name %q: %w", r.Name, ErrInvalidInput)
	}
	return nil
}
