// Package apperr holds the error kinds shared across the index, the
// note service and the transport layers. Callers match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrIO marks a filesystem read, write or stat failure.
	ErrIO = errors.New("io failure")
	// ErrStorage marks a failure inside the index database.
	ErrStorage = errors.New("storage failure")
	// ErrPoisoned is returned when an operation panicked while holding the
	// index lock. The lock is released; later operations proceed.
	ErrPoisoned = errors.New("index lock poisoned")
)
