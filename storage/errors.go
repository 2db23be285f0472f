package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when an object does not exist in the backend.
	ErrNotFound = errors.New("object not found")

	// ErrUnknownBackend is returned by New for an unregistered backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrAlreadyPublished is returned when a versioned object exists and
	// overwriting was not requested.
	ErrAlreadyPublished = errors.New("version already published")
)
