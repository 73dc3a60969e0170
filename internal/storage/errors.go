package storage

import "errors"

// Store errors. Runs and their rows are written once and never updated.
var (
	// ErrNotFound is returned when a run or its rows do not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a batch repeats a stored key or a key
	// within itself. Nothing of the batch is written.
	ErrDuplicateKey = errors.New("duplicate key: stored runs are immutable")

	// ErrInvalidInput is returned for a row missing its run id or key fields.
	ErrInvalidInput = errors.New("invalid input")
)
