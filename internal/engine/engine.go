// Package engine defines the speech recognition contract consumed by the job
// runner and the adapters that implement it.
package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAccelerationUnavailable marks failures caused by missing or broken
	// GPU/Metal support. Callers may retry once with Options.ForceCPU set.
	ErrAccelerationUnavailable = errors.New("acceleration hardware unavailable")
	// ErrEngineFailure covers every other adapter failure.
	ErrEngineFailure = errors.New("recognition engine failure")
)

// Options configures a single recognition call.
type Options struct {
	Model    string // model name, e.g. "small"
	Language string // language code or "auto"
	ForceCPU bool
}

// Engine turns a media file into text.
type Engine interface {
	Transcribe(ctx context.Context, filePath string, opts Options) (string, error)
	Name() string
}

// AccelerationError is returned when the engine could not initialise its
// hardware backend. It matches ErrAccelerationUnavailable with errors.Is.
type AccelerationError struct {
	Backend string // "metal", "cuda", ...
	Detail  string
	Err     error
}

func (e *AccelerationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s backend failed to initialize", ErrAccelerationUnavailable, e.Backend)
	}
	return fmt.Sprintf("%s: %s backend failed to initialize: %s", ErrAccelerationUnavailable, e.Backend, e.Detail)
}

func (e *AccelerationError) Is(target error) bool {
	return target == ErrAccelerationUnavailable
}

func (e *AccelerationError) Unwrap() error {
	return e.Err
}
