package models

import (
	"errors"
)

// Submission errors are returned synchronously, before any job exists.
var (
	ErrMissingFile       = errors.New("no file uploaded")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrPayloadTooLarge   = errors.New("file exceeds maximum size")
	ErrUnsupportedTarget = errors.New("unsupported conversion target")
)

// Job errors are only ever reported through the job record.
var (
	ErrEmptyResult = errors.New("transcription failed: no text produced")
)
