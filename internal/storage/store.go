// Package storage defines the result store shared by the storage backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/pkg/jos3"
)

// ErrRunNotFound is returned when a run ID is not in the store
var ErrRunNotFound = errors.New("run not found")

// Run is one stored evaluation: the simulator samples it was built from and
// the per-step comfort results.
type Run struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Variant   string    `json:"variant"`
	CreatedAt time.Time `json:"created_at"`
	// Steps is the number of evaluated time steps saved for the run
	Steps int `json:"steps"`
}

// Store is implemented by every storage backend
type Store interface {
	CreateRun(ctx context.Context, name, variant string) (*Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context) ([]Run, error)

	SaveSamples(ctx context.Context, id uuid.UUID, records []jos3.Record) error
	LoadSamples(ctx context.Context, id uuid.UUID) ([]jos3.Record, error)

	SaveResults(ctx context.Context, id uuid.UUID, results []evaluator.StepResult) error
	LoadResults(ctx context.Context, id uuid.UUID) ([]evaluator.StepResult, error)

	// SaveRun stores a new run together with its samples and results in one
	// transaction and sets run.Steps. Nothing is stored when it fails.
	SaveRun(ctx context.Context, run *Run, records []jos3.Record, results []evaluator.StepResult) error

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
	Close() error
}

// NewRun builds a run with a fresh ID, stamped now
func NewRun(name, variant string) *Run {
	return &Run{
		ID:        uuid.New(),
		Name:      name,
		Variant:   variant,
		CreatedAt: time.Now().UTC(),
	}
}
