package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a run or result is not found.
	ErrNotFound = errors.New("run not found")
)
