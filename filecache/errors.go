package filecache

import "errors"

var (
	// ErrEmptyPayload is returned when a write would produce an empty file.
	ErrEmptyPayload = errors.New("filecache: empty payload")

	// ErrPathEscape is returned when a clear sub-path leaves the namespace directory.
	ErrPathEscape = errors.New("filecache: path escapes namespace directory")

	// ErrInvalidNamespace is returned when the namespace slug is empty.
	ErrInvalidNamespace = errors.New("filecache: namespace directory is empty after sanitizing")
)
