package kvstore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// RistrettoConfig configures a Ristretto store.
type RistrettoConfig struct {
	// MaxCost bounds the total bytes held. Default: 64 MiB.
	MaxCost int64

	// Clock is used for expiry. Default: time.Now.
	Clock Clock
}

// Ristretto is a bounded in-process Store. Entries may be evicted before
// they expire when the cache is full; callers see that as a miss.
type Ristretto struct {
	rc  *ristretto.Cache[string, []byte]
	now Clock

	mu   sync.Mutex
	gens map[string]uint64
}

// NewRistretto creates a Ristretto store.
func NewRistretto(cfg RistrettoConfig) (*Ristretto, error) {
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 64 << 20
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	rc, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// Roughly 10x the expected item count at ~1 KiB per fragment.
		NumCounters: max(cfg.MaxCost/100, 1000),
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &Ristretto{
		rc:   rc,
		now:  cfg.Clock,
		gens: make(map[string]uint64),
	}, nil
}

func (r *Ristretto) key(group, key string) string {
	r.mu.Lock()
	gen := r.gens[group]
	r.mu.Unlock()
	return group + ":" + strconv.FormatUint(gen, 10) + ":" + key
}

// Get returns the value for key in group.
func (r *Ristretto) Get(_ context.Context, group, key string) ([]byte, bool, error) {
	if err := validate(group, key); err != nil {
		return nil, false, err
	}

	raw, ok := r.rc.Get(r.key(group, key))
	if !ok {
		return nil, false, nil
	}
	return decodeEntry(raw, r.now())
}

// Set stores value under key in group. The write is visible to Get when Set
// returns unless the admission policy rejected it.
func (r *Ristretto) Set(_ context.Context, group, key string, value []byte, ttl time.Duration) error {
	if err := validate(group, key); err != nil {
		return err
	}

	entry := encodeEntry(value, ttl, r.now())
	if ttl < 0 {
		ttl = 0
	}
	r.rc.SetWithTTL(r.key(group, key), entry, int64(len(entry)), ttl)
	r.rc.Wait()
	return nil
}

// Delete removes key from group.
func (r *Ristretto) Delete(_ context.Context, group, key string) error {
	r.rc.Del(r.key(group, key))
	return nil
}

// DeleteGroup orphans every key in group by advancing its generation.
func (r *Ristretto) DeleteGroup(_ context.Context, group string) error {
	r.mu.Lock()
	r.gens[group]++
	r.mu.Unlock()
	return nil
}

// Close stops the cache's background goroutines.
func (r *Ristretto) Close() error {
	r.rc.Close()
	return nil
}

var (
	_ Store        = (*Ristretto)(nil)
	_ GroupDeleter = (*Ristretto)(nil)
)
