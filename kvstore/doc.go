// Package kvstore provides TTL-aware key-value stores for fragment payloads.
//
// Every store partitions keys into groups so a whole group can be evicted at
// once. Stores that cannot evict a group natively emulate it with a group
// generation: keys embed the current generation and DeleteGroup advances it,
// orphaning the old entries until they expire.
//
// Implementations:
//
//   - Memory: process-local maps with an injectable clock (tests, single process).
//   - Ristretto: bounded in-process cache (github.com/dgraph-io/ristretto/v2).
//   - Redis: shared remote store (github.com/redis/go-redis/v9).
//   - Bolt: persistent single-file store (go.etcd.io/bbolt).
//   - Memcache: shared remote store (github.com/bradfitz/gomemcache).
//
// Guarded wraps any Store with a circuit breaker and per-call timeout so a
// dead remote store fails fast.
package kvstore
