package store

import "errors"

var (
	ErrNotFound  = errors.New("store: job not found")
	ErrDuplicate = errors.New("store: duplicate job id")
	// ErrTerminal is returned when a patch targets a job that already finished.
	ErrTerminal          = errors.New("store: job already in a terminal state")
	ErrInvalidTransition = errors.New("store: invalid status transition")
)
