// Package worker runs transcription jobs outside the request/response cycle
// and keeps the job store consistent with what actually happened.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"andretools/internal/engine"
	"andretools/internal/models"
	"andretools/internal/store"
)

// Deps groups the runner's collaborators.
type Deps struct {
	Jobs    *store.JobStore
	Engine  engine.Engine
	Options engine.Options
	// Concurrency bounds simultaneous engine calls; 0 means unbounded.
	Concurrency int
}

// Runner starts one goroutine per accepted job.
type Runner struct {
	jobs       *store.JobStore
	engine     engine.Engine
	opts       engine.Options
	slots      *semaphore.Weighted
	limit      int
	removeFile func(name string) error
	wg         sync.WaitGroup
}

// NewRunner validates deps and builds a runner.
func NewRunner(deps Deps) (*Runner, error) {
	if deps.Jobs == nil {
		return nil, errors.New("worker: job store is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("worker: recognition engine is required")
	}
	r := &Runner{
		jobs:       deps.Jobs,
		engine:     deps.Engine,
		opts:       deps.Options,
		limit:      deps.Concurrency,
		removeFile: os.Remove,
	}
	if deps.Concurrency > 0 {
		r.slots = semaphore.NewWeighted(int64(deps.Concurrency))
	}
	return r, nil
}

// Concurrency reports the slot limit; 0 means unbounded.
func (r *Runner) Concurrency() int { return r.limit }

// EngineName reports the adapter in use.
func (r *Runner) EngineName() string { return r.engine.Name() }

// Start processes job in the background and returns immediately. The file at
// path belongs to the runner from now on and is removed once the job is done.
func (r *Runner) Start(job models.Job, path string) {
	r.wg.Add(1)
	go r.run(job, path)
}

// Wait blocks until every started job has finished or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(job models.Job, path string) {
	logger := log.WithFields(log.Fields{"job_id": job.ID, "file": job.SourceFileName})
	ctx := context.Background()

	defer r.wg.Done()
	// Registered before the recover below so it runs after the outcome is stored.
	defer r.cleanup(logger, path)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("transcription panicked: %v", rec)
			r.recordFailure(ctx, logger, job.ID, fmt.Errorf("%w: unexpected panic: %v", engine.ErrEngineFailure, rec))
		}
	}()

	if r.slots != nil {
		if err := r.slots.Acquire(ctx, 1); err != nil {
			r.recordFailure(ctx, logger, job.ID, fmt.Errorf("acquire worker slot: %w", err))
			return
		}
		defer r.slots.Release(1)
	}

	logger.WithField("engine", r.engine.Name()).Info("transcription started")
	text, err := Recognize(ctx, r.engine, path, r.opts)
	if err != nil {
		r.recordFailure(ctx, logger, job.ID, err)
		return
	}

	done, err := r.jobs.Complete(ctx, job.ID, text)
	if err != nil {
		logger.Errorf("failed to record completion: %v", err)
		return
	}
	logger.WithFields(log.Fields{
		"chars":   len(text),
		"elapsed": done.Elapsed(time.Now()).Round(time.Millisecond),
		"preview": preview(text, 100),
	}).Info("transcription completed")
}

// Recognize calls the engine, retrying exactly once on the CPU path when the
// acceleration backend is unavailable. The text is trimmed; blank text is an error.
func Recognize(ctx context.Context, eng engine.Engine, path string, opts engine.Options) (string, error) {
	text, err := eng.Transcribe(ctx, path, opts)
	if err != nil && errors.Is(err, engine.ErrAccelerationUnavailable) && !opts.ForceCPU {
		log.WithField("file", path).Warnf("acceleration unavailable, retrying on CPU: %v", err)
		cpuOpts := opts
		cpuOpts.ForceCPU = true
		text, err = eng.Transcribe(ctx, path, cpuOpts)
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.ErrEmptyResult
	}
	return text, nil
}

func (r *Runner) recordFailure(ctx context.Context, logger *log.Entry, id string, cause error) {
	logger.Errorf("transcription failed: %v", cause)
	if _, err := r.jobs.Fail(ctx, id, cause); err != nil {
		logger.Errorf("failed to record job error: %v", err)
	}
}

// cleanup removes the uploaded file. Failures are logged, never escalated.
func (r *Runner) cleanup(logger *log.Entry, path string) {
	if path == "" {
		return
	}
	if err := r.removeFile(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		logger.WithField("path", path).Warnf("failed to remove temporary file: %v", err)
		return
	}
	logger.WithField("path", path).Debug("temporary file removed")
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
