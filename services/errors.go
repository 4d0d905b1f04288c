package services

import "errors"

var (
	// ErrValidation marks input rejected before reaching the store.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned by Get for an unknown id. Delete never returns it.
	ErrNotFound = errors.New("item not found")
	// ErrStorage marks any failure talking to the document store.
	ErrStorage = errors.New("storage error")
)

// ValidationError describes the offending field. Its message is safe to
// return to clients.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError wraps a store failure. Only Op and the wrapped error are
// logged; clients see a generic message.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
