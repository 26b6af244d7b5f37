package cache

import "errors"

// Sentinel errors for fragment operations.
var (
	// ErrNilBackend is returned by New when no backend is supplied.
	ErrNilBackend = errors.New("cache: backend is nil")

	// ErrInvalidProducer is returned by Run in diagnostics mode when the
	// producer is nil.
	ErrInvalidProducer = errors.New("cache: producer is not callable")

	// ErrInvalidConditions is returned when conditions cannot be canonicalized.
	ErrInvalidConditions = errors.New("cache: conditions cannot be canonicalized")

	// ErrInvalidPath is returned by backends that resolve an empty storage location.
	ErrInvalidPath = errors.New("cache: resolved path is empty")

	// ErrStorageUnavailable wraps backend I/O failures. Run degrades it to a
	// miss (reads) or an unpersisted payload (writes).
	ErrStorageUnavailable = errors.New("cache: storage unavailable")
)
