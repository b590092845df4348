// Package tasks runs periodic housekeeping: evicting finished transcription
// jobs and purging converted downloads.
package tasks

import (
	"context"
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultSchedule runs housekeeping once a minute.
const DefaultSchedule = "@every 1m"

// JobSweeper evicts terminal jobs older than the given age.
type JobSweeper interface {
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}

// DownloadPurger deletes converted files older than the given age.
type DownloadPurger interface {
	PurgeOlderThan(age time.Duration) (int, error)
}

// JanitorConfig controls what is cleaned and how often.
type JanitorConfig struct {
	Schedule  string        // cron expression or @every descriptor
	JobTTL    time.Duration // 0 disables job eviction
	Retention time.Duration // 0 disables download purging
}

// Report counts what one pass removed.
type Report struct {
	JobsEvicted     int
	DownloadsPurged int
}

// Janitor schedules housekeeping with robfig/cron.
type Janitor struct {
	cfg       JanitorConfig
	jobs      JobSweeper
	downloads DownloadPurger
	cron      *cronlib.Cron
}

// NewJanitor validates the schedule and registers the cleanup pass.
// Either collaborator may be nil.
func NewJanitor(cfg JanitorConfig, jobs JobSweeper, downloads DownloadPurger) (*Janitor, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	logger := cronlib.PrintfLogger(log.StandardLogger())
	j := &Janitor{
		cfg:       cfg,
		jobs:      jobs,
		downloads: downloads,
		cron: cronlib.New(cronlib.WithChain(
			cronlib.Recover(logger),
			cronlib.SkipIfStillRunning(logger),
		)),
	}
	if _, err := j.cron.AddFunc(cfg.Schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", cfg.Schedule, err)
	}
	return j, nil
}

// Start begins running the schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
	log.WithField("schedule", j.cfg.Schedule).Info("janitor started")
}

// Stop halts the schedule and waits for a running pass to finish or ctx to end.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn("janitor stop timed out")
	}
}

// RunOnce performs a single cleanup pass. Failures are logged, never fatal.
func (j *Janitor) RunOnce(ctx context.Context) Report {
	var r Report
	if j.jobs != nil && j.cfg.JobTTL > 0 {
		n, err := j.jobs.Sweep(ctx, j.cfg.JobTTL)
		if err != nil {
			log.Errorf("janitor: job sweep failed: %v", err)
		}
		r.JobsEvicted = n
	}
	if j.downloads != nil && j.cfg.Retention > 0 {
		n, err := j.downloads.PurgeOlderThan(j.cfg.Retention)
		if err != nil {
			log.Errorf("janitor: download purge failed: %v", err)
		}
		r.DownloadsPurged = n
	}
	if r.JobsEvicted > 0 || r.DownloadsPurged > 0 {
		log.WithFields(log.Fields{
			"jobs_evicted":     r.JobsEvicted,
			"downloads_purged": r.DownloadsPurged,
		}).Info("janitor pass complete")
	}
	return r
}
