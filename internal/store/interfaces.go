package store

import (
	"context"

	"andretools/internal/models"
)

// --- Job Backend ---

// Backend is the storage behind JobStore. Each method must be atomic with
// respect to other calls on the same id.
type Backend interface {
	Insert(ctx context.Context, job models.Job) error
	Get(ctx context.Context, id string) (models.Job, error)
	// Mutate applies fn to the stored job and persists the result only if fn
	// returns nil. The returned job is the stored state after the call.
	Mutate(ctx context.Context, id string, fn func(*models.Job) error) (models.Job, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Job, error)
}

// --- Job Patch ---

// Patch describes a status transition. Zero fields are left untouched.
type Patch struct {
	Status      models.JobStatus
	Result      string
	ErrorDetail string
}
