package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrVersionConflict is returned when a conditional write finds a newer
	// version of the document than the one it was based on.
	ErrVersionConflict = errors.New("version conflict")
)
