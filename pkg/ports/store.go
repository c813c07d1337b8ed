package ports

import (
	"context"

	"github.com/aretw0/graft/pkg/domain"
)

// JobStore defines the interface for persisting dispatched job records.
// This lets a later invocation fetch or cancel a job it did not submit itself
// (e.g. a CLI run following an earlier dispatch).
type JobStore interface {
	// Save persists the job record under its ID.
	Save(ctx context.Context, job *domain.RemoteJob) error

	// Load retrieves a job record by ID.
	// Returns domain.ErrJobNotFound if the job does not exist.
	Load(ctx context.Context, id string) (*domain.RemoteJob, error)

	// Delete removes the job record for the given ID.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored job records.
	List(ctx context.Context) ([]string, error)
}
