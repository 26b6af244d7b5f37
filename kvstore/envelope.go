package kvstore

import (
	"encoding/binary"
	"fmt"
	"time"
)

// headerLen is the size of the expiry prefix on enveloped values.
const headerLen = 8

// encodeEntry lays out an entry as an 8-byte big-endian expiry in unix
// nanoseconds (0 = never) followed by the raw value.
func encodeEntry(value []byte, ttl time.Duration, now time.Time) []byte {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	buf := make([]byte, headerLen+len(value))
	binary.BigEndian.PutUint64(buf[:headerLen], uint64(expiresAt))
	copy(buf[headerLen:], value)
	return buf
}

// decodeEntry returns a copy of the value in raw, or ok=false if the entry
// has expired at now.
func decodeEntry(raw []byte, now time.Time) (value []byte, ok bool, err error) {
	if len(raw) < headerLen {
		return nil, false, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(raw))
	}

	expiresAt := int64(binary.BigEndian.Uint64(raw[:headerLen]))
	if expiresAt > 0 && now.UnixNano() >= expiresAt {
		return nil, false, nil
	}
	return append([]byte(nil), raw[headerLen:]...), true, nil
}
