package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"
)

// Sentinel errors.
var (
	// ErrUnsupported is returned by optional operations a store cannot perform.
	ErrUnsupported = errors.New("kvstore: operation not supported")

	// ErrClosed is returned by stores used after Close.
	ErrClosed = errors.New("kvstore: store is closed")

	// ErrCorrupt is returned when a stored value cannot be decoded.
	ErrCorrupt = errors.New("kvstore: corrupt entry")

	// ErrInvalidKey is returned for groups or keys rejected by ValidateName.
	ErrInvalidKey = errors.New("kvstore: invalid group or key")
)

// MaxNameLen bounds groups and keys so "<group>:<generation>:<key>" stays
// within memcached's 250 byte key limit.
const MaxNameLen = 100

// Store is a grouped key-value store with per-entry TTL.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: remote implementations must honor cancellation/deadlines.
// - Errors: Get returns (nil, false, nil) on a miss or an expired entry.
//   Delete of a missing key is not an error.
// - TTL: ttl <= 0 stores without expiry.
// - Ownership: returned slices are owned by the caller.
type Store interface {
	Get(ctx context.Context, group, key string) ([]byte, bool, error)
	Set(ctx context.Context, group, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, group, key string) error
}

// GroupDeleter is implemented by stores that can evict every key in a group.
type GroupDeleter interface {
	DeleteGroup(ctx context.Context, group string) error
}

// Pinger is implemented by stores with a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Clock returns the current time. Stores that evaluate expiry themselves
// accept one so tests can move time forward.
type Clock func() time.Time

// ValidateName reports whether s can be used as a group or key by every
// store: non-empty, at most MaxNameLen bytes, and free of ':', whitespace and
// control characters. ':' separates the parts of composed remote keys.
func ValidateName(s string) error {
	if s == "" {
		return ErrInvalidKey
	}
	if len(s) > MaxNameLen {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidKey, len(s), MaxNameLen)
	}
	for _, r := range s {
		if r == ':' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidKey, s, r)
		}
	}
	return nil
}

func validate(group, key string) error {
	if err := ValidateName(group); err != nil {
		return err
	}
	return ValidateName(key)
}
