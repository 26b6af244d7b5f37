package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// maxRelativeExpiry is the largest expiration memcached treats as relative;
// larger values are read as absolute unix timestamps.
const maxRelativeExpiry = 30 * 24 * time.Hour

// MemcacheConfig configures a Memcache store.
type MemcacheConfig struct {
	// Servers lists host:port addresses. Required.
	Servers []string

	// Timeout is the per-operation socket timeout. Default: the client default.
	Timeout time.Duration

	// Clock converts long TTLs to absolute expiries. Default: time.Now.
	Clock Clock
}

// Memcache is a Store backed by memcached. Keys are
// "<group>:<generation>:<key>"; DeleteGroup advances the generation counter
// stored under "<group>:gen".
type Memcache struct {
	mc  *memcache.Client
	now Clock
}

// NewMemcache creates a client for the configured servers.
func NewMemcache(cfg MemcacheConfig) (*Memcache, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("kvstore: memcache servers are required")
	}
	mc := memcache.New(cfg.Servers...)
	if cfg.Timeout > 0 {
		mc.Timeout = cfg.Timeout
	}
	return NewMemcacheFromClient(mc, cfg.Clock), nil
}

// NewMemcacheFromClient wraps an existing client.
func NewMemcacheFromClient(mc *memcache.Client, now Clock) *Memcache {
	if now == nil {
		now = time.Now
	}
	return &Memcache{mc: mc, now: now}
}

func genKey(group string) string {
	return group + ":gen"
}

// generation returns the current generation of group, initializing it if
// memcached has none.
func (m *Memcache) generation(group string) (string, error) {
	item, err := m.mc.Get(genKey(group))
	if err == nil {
		return string(item.Value), nil
	}
	if !errors.Is(err, memcache.ErrCacheMiss) {
		return "", err
	}

	gen := strconv.FormatInt(m.now().UnixNano(), 10)
	err = m.mc.Add(&memcache.Item{Key: genKey(group), Value: []byte(gen)})
	switch {
	case err == nil:
		return gen, nil
	case errors.Is(err, memcache.ErrNotStored):
		// Lost the race; use the winner's generation.
		item, err := m.mc.Get(genKey(group))
		if err != nil {
			return "", err
		}
		return string(item.Value), nil
	default:
		return "", err
	}
}

func (m *Memcache) key(group, key string) (string, error) {
	gen, err := m.generation(group)
	if err != nil {
		return "", err
	}
	return group + ":" + gen + ":" + key, nil
}

// expiration converts ttl to memcached's expiration field.
func (m *Memcache) expiration(ttl time.Duration) int32 {
	switch {
	case ttl <= 0:
		return 0
	case ttl < time.Second:
		return 1
	case ttl > maxRelativeExpiry:
		return int32(m.now().Add(ttl).Unix())
	default:
		return int32(ttl / time.Second)
	}
}

// Get returns the value for key in group.
func (m *Memcache) Get(_ context.Context, group, key string) ([]byte, bool, error) {
	if err := validate(group, key); err != nil {
		return nil, false, err
	}

	k, err := m.key(group, key)
	if err != nil {
		return nil, false, fmt.Errorf("kvstore: memcache generation: %w", err)
	}

	item, err := m.mc.Get(k)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kvstore: memcache get: %w", err)
	}
	return item.Value, true, nil
}

// Set stores value under key in group.
func (m *Memcache) Set(_ context.Context, group, key string, value []byte, ttl time.Duration) error {
	if err := validate(group, key); err != nil {
		return err
	}

	k, err := m.key(group, key)
	if err != nil {
		return fmt.Errorf("kvstore: memcache generation: %w", err)
	}

	if err := m.mc.Set(&memcache.Item{Key: k, Value: value, Expiration: m.expiration(ttl)}); err != nil {
		return fmt.Errorf("kvstore: memcache set: %w", err)
	}
	return nil
}

// Delete removes key from group.
func (m *Memcache) Delete(_ context.Context, group, key string) error {
	if err := validate(group, key); err != nil {
		return err
	}
	k, err := m.key(group, key)
	if err != nil {
		return fmt.Errorf("kvstore: memcache generation: %w", err)
	}
	if err := m.mc.Delete(k); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("kvstore: memcache delete: %w", err)
	}
	return nil
}

// DeleteGroup advances the group generation. Entries written under older
// generations become unreachable and age out on their own.
func (m *Memcache) DeleteGroup(_ context.Context, group string) error {
	if err := ValidateName(group); err != nil {
		return err
	}

	_, err := m.mc.Increment(genKey(group), 1)
	if err == nil || errors.Is(err, memcache.ErrCacheMiss) {
		// No generation means nothing reachable to evict.
		return nil
	}
	return fmt.Errorf("kvstore: memcache increment generation: %w", err)
}

// Ping checks every server.
func (m *Memcache) Ping(context.Context) error {
	return m.mc.Ping()
}

// Close closes idle connections.
func (m *Memcache) Close() error {
	return m.mc.Close()
}

var (
	_ Store        = (*Memcache)(nil)
	_ GroupDeleter = (*Memcache)(nil)
	_ Pinger       = (*Memcache)(nil)
)
