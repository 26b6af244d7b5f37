package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// KeyLength is the length of keys produced by DefaultKeyer.
const KeyLength = 32

// Keyer derives deterministic cache keys from conditions.
//
// Contract:
// - Determinism: same conditions must produce the same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: conditions that cannot be canonicalized return an error wrapping ErrInvalidConditions.
type Keyer interface {
	// Key derives a cache key from conditions.
	Key(c Conditions) (string, error)
}

// DefaultKeyer derives SHA-256 based keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives a deterministic key: the first 16 bytes of
// SHA-256(canonical JSON(c)) as 32 lowercase hex characters.
// nil and empty conditions derive the same key.
func (k *DefaultKeyer) Key(c Conditions) (string, error) {
	canonical, err := Canonicalize(c)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:KeyLength/2]), nil
}

// Canonicalize produces the canonical JSON form of c that keys are derived
// from. Maps are sorted by key at every depth; slices keep their order.
func Canonicalize(c Conditions) ([]byte, error) {
	if c == nil {
		c = Conditions{}
	}
	out, err := canonicalize(map[string]any(c))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConditions, err)
	}
	return out, nil
}

func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case Conditions:
		return canonicalizeMap(val)
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		// encoding/json already sorts typed map keys.
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", k, err)
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
