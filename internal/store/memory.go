package store

import (
	"context"
	"sort"
	"sync"

	"andretools/internal/models"
)

// MemoryBackend keeps jobs in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu   sync.RWMutex
	jobs map[string]models.Job
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{jobs: make(map[string]models.Job)}
}

func (m *MemoryBackend) Insert(_ context.Context, job models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[job.ID]; ok {
		return ErrDuplicate
	}
	m.jobs[job.ID] = copyJob(job)
	return nil
}

func (m *MemoryBackend) Get(_ context.Context, id string) (models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return copyJob(job), nil
}

func (m *MemoryBackend) Mutate(_ context.Context, id string, fn func(*models.Job) error) (models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.jobs[id]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	next := copyJob(current)
	if err := fn(&next); err != nil {
		return copyJob(current), err
	}
	m.jobs[id] = next
	return copyJob(next), nil
}

func (m *MemoryBackend) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(m.jobs, id)
	return nil
}

// List returns a snapshot of all jobs ordered by creation time.
func (m *MemoryBackend) List(_ context.Context) ([]models.Job, error) {
	m.mu.RLock()
	out := make([]models.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, copyJob(job))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// copyJob detaches the CompletedAt pointer so callers never alias stored state.
func copyJob(job models.Job) models.Job {
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		job.CompletedAt = &t
	}
	return job
}
