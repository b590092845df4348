package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"andretools/internal/models"
)

// JobStore is the single source of truth for transcription progress and results.
type JobStore struct {
	backend Backend
	now     func() time.Time
	newID   func() string
}

// NewJobStore wraps a backend. A nil backend defaults to memory.
func NewJobStore(backend Backend) *JobStore {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &JobStore{
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Create stores a new processing job and returns it with its fresh id.
func (s *JobStore) Create(ctx context.Context, meta models.SourceMeta) (models.Job, error) {
	job := models.Job{
		ID:             s.newID(),
		Status:         models.JobStatusProcessing,
		SourceFileName: meta.FileName,
		SourceFileSize: meta.FileSize,
		SourceFilePath: meta.FilePath,
		Progress:       0,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.backend.Insert(ctx, job); err != nil {
		return models.Job{}, fmt.Errorf("create job: %w", err)
	}
	log.WithFields(log.Fields{"job_id": job.ID, "file": job.SourceFileName, "size": job.SourceFileSize}).Debug("job created")
	return job, nil
}

// Get returns the job or ErrNotFound.
func (s *JobStore) Get(ctx context.Context, id string) (models.Job, error) {
	return s.backend.Get(ctx, id)
}

// Update applies a terminal transition. Jobs leave processing at most once.
func (s *JobStore) Update(ctx context.Context, id string, patch Patch) (models.Job, error) {
	if !patch.Status.Valid() {
		return models.Job{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, patch.Status)
	}
	if !patch.Status.IsTerminal() {
		return models.Job{}, fmt.Errorf("%w: -> %q", ErrInvalidTransition, patch.Status)
	}
	completedAt := s.now().UTC()

	job, err := s.backend.Mutate(ctx, id, func(j *models.Job) error {
		if j.Status.IsTerminal() {
			return ErrTerminal
		}
		j.Status = patch.Status
		j.CompletedAt = &completedAt
		switch patch.Status {
		case models.JobStatusCompleted:
			j.Result = patch.Result
			j.ErrorDetail = ""
		case models.JobStatusError:
			j.Result = ""
			j.ErrorDetail = patch.ErrorDetail
		}
		return nil
	})
	if err != nil {
		return job, fmt.Errorf("update job %s: %w", id, err)
	}
	return job, nil
}

// Complete marks the job completed with the recognized text.
func (s *JobStore) Complete(ctx context.Context, id, text string) (models.Job, error) {
	return s.Update(ctx, id, Patch{Status: models.JobStatusCompleted, Result: text})
}

// Fail marks the job errored with a human-readable description of cause.
func (s *JobStore) Fail(ctx context.Context, id string, cause error) (models.Job, error) {
	detail := "unknown error"
	if cause != nil {
		detail = cause.Error()
	}
	return s.Update(ctx, id, Patch{Status: models.JobStatusError, ErrorDetail: detail})
}

// List returns a snapshot of every job currently held.
func (s *JobStore) List(ctx context.Context) ([]models.Job, error) {
	return s.backend.List(ctx)
}

// Sweep evicts terminal jobs that finished more than olderThan ago.
// Processing jobs are never evicted.
func (s *JobStore) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	jobs, err := s.backend.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep jobs: %w", err)
	}
	cutoff := s.now().UTC().Add(-olderThan)

	removed := 0
	for _, job := range jobs {
		if !job.Status.IsTerminal() || job.CompletedAt == nil || job.CompletedAt.After(cutoff) {
			continue
		}
		if err := s.backend.Delete(ctx, job.ID); err != nil {
			log.WithField("job_id", job.ID).Warnf("sweep: failed to evict job: %v", err)
			continue
		}
		removed++
	}
	return removed, nil
}
