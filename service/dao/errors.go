package dao

import "errors"

// Common, reusable DAO errors. Callers detect them with errors.Is.
var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("dao: not found")

	// ErrNilEntity is returned when the caller attempts to persist a nil pointer.
	ErrNilEntity = errors.New("dao: nil entity")

	// ErrReadOnly is returned when an append-only store is asked to overwrite a key.
	ErrReadOnly = errors.New("dao: entity already stored")
)
