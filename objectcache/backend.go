package objectcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/fragcache/cache"
	"github.com/jonwraymond/fragcache/kvstore"
	"github.com/jonwraymond/fragcache/observe"
)

// DefaultGroup is used when Config.Group is empty.
const DefaultGroup = "fragment-object-cache"

// Config configures a Backend.
type Config struct {
	// Group is the store group, and the fragment namespace.
	// Default: DefaultGroup.
	Group string

	// Policy sets entry lifetimes. The zero value selects DefaultPolicy;
	// a negative DefaultTTL keeps entries forever.
	Policy Policy

	// Keyer derives store keys. Default: cache.DefaultKeyer.
	Keyer cache.Keyer

	// Logger receives degrade notices. Default: observe.NopLogger.
	Logger observe.Logger

	// Store holds the entries. Default: a process-local kvstore.Memory.
	Store kvstore.Store
}

// Backend is a cache.Backend over a kvstore.Store.
type Backend struct {
	group  string
	policy Policy
	keyer  cache.Keyer
	logger observe.Logger
	store  kvstore.Store
}

// New creates a Backend.
func New(cfg Config) *Backend {
	if cfg.Group == "" {
		cfg.Group = DefaultGroup
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Keyer == nil {
		cfg.Keyer = cache.NewDefaultKeyer()
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Store == nil {
		cfg.Store = kvstore.NewMemory()
	}

	return &Backend{
		group:  cfg.Group,
		policy: cfg.Policy,
		keyer:  cfg.Keyer,
		logger: cfg.Logger,
		store:  cfg.Store,
	}
}

// Namespace returns the store group.
func (b *Backend) Namespace() string { return b.group }

// Kind reports "object".
func (b *Backend) Kind() string { return "object" }

// Store returns the underlying store.
func (b *Backend) Store() kvstore.Store { return b.store }

// Read returns the stored payload for c. Expired entries are misses.
func (b *Backend) Read(ctx context.Context, c cache.Conditions) ([]byte, bool, error) {
	key, err := b.keyer.Key(c)
	if err != nil {
		return nil, false, err
	}

	payload, ok, err := b.store.Get(ctx, b.group, key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", cache.ErrStorageUnavailable, err)
	}
	return payload, ok, nil
}

// Write stores payload for c with the TTL chosen by TTLFor.
func (b *Backend) Write(ctx context.Context, payload []byte, c cache.Conditions) error {
	key, err := b.keyer.Key(c)
	if err != nil {
		return err
	}

	if err := b.store.Set(ctx, b.group, key, payload, b.TTLFor(c)); err != nil {
		return fmt.Errorf("%w: %w", cache.ErrStorageUnavailable, err)
	}
	return nil
}

// TTLFor returns the TTL an entry for c is stored with. Zero means no expiry.
func (b *Backend) TTLFor(c cache.Conditions) time.Duration {
	var override time.Duration
	if v, ok := c.Get(ExpiresCondition); ok {
		override, _ = ParseExpires(v)
	}
	return b.policy.EffectiveTTL(override)
}

// Clear evicts every entry in the group. Stores that cannot delete a group
// are left untouched and Clear returns nil.
func (b *Backend) Clear(ctx context.Context) error {
	gd, ok := b.store.(kvstore.GroupDeleter)
	if ok {
		err := gd.DeleteGroup(ctx, b.group)
		if err == nil {
			return nil
		}
		if !errors.Is(err, kvstore.ErrUnsupported) {
			return fmt.Errorf("%w: %w", cache.ErrStorageUnavailable, err)
		}
	}

	b.logger.Warn(ctx, "object cache clear skipped: store cannot delete groups",
		observe.Field{Key: "group", Value: b.group},
		observe.Field{Key: "store", Value: fmt.Sprintf("%T", b.store)},
	)
	return nil
}
