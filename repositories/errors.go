package repositories

import "errors"

var (
	// ErrNotFound is returned when no record matches the key.
	ErrNotFound = errors.New("record not found")
	// ErrWriteConflict is returned when a write collides with a unique key.
	ErrWriteConflict = errors.New("write conflict")
)
