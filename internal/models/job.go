package models

import "time"

// Job is one transcription request's tracked lifecycle record. Handlers
// shape the wire form per status; Job itself is never serialized.
type Job struct {
	ID             string
	Status         JobStatus
	SourceFileName string
	SourceFileSize int64
	SourceFilePath string // owned by the runner, removed once terminal
	Progress       int
	Result         string
	ErrorDetail    string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// SourceMeta is the descriptive metadata captured when a job is submitted.
type SourceMeta struct {
	FileName string
	FileSize int64
	FilePath string
}

// Elapsed returns how long the job ran, or has been running so far.
func (j Job) Elapsed(now time.Time) time.Duration {
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(j.CreatedAt)
	}
	return now.Sub(j.CreatedAt)
}
