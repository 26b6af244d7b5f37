package cache

import "context"

// Backend stores and retrieves fragment payloads addressed by Conditions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Read returns (nil, false, nil) on a plain miss. Any returned error
//   is treated by Fragment as a miss (Read) or an unpersisted payload (Write).
// - Ownership: the backend is the sole reader/writer of its storage.
type Backend interface {
	// Namespace returns the slug scoping this backend's keys or paths.
	Namespace() string

	// Read returns the stored payload for the conditions.
	Read(ctx context.Context, c Conditions) ([]byte, bool, error)

	// Write persists payload for the conditions.
	Write(ctx context.Context, payload []byte, c Conditions) error

	// Clear removes every entry in the namespace.
	Clear(ctx context.Context) error
}

// Marker is implemented by backends that wrap freshly produced payloads with
// leading and trailing annotations. Markers are captured into the stored
// payload and are not regenerated on hits. An empty string emits nothing.
type Marker interface {
	StartMarker(c Conditions) string
	EndMarker(c Conditions) string
}

// Kinder is implemented by backends that report a short kind name
// ("file", "object") for logs and telemetry.
type Kinder interface {
	Kind() string
}

func backendKind(b Backend) string {
	if k, ok := b.(Kinder); ok {
		return k.Kind()
	}
	return "custom"
}
