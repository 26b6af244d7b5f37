package kvstore

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

func TestRedis_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	r := NewRedis(RedisConfig{Addr: addr})
	t.Cleanup(func() { _ = r.Close() })
	if err := r.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	for _, g := range []string{"g1", "g2", "g3", "g4", "g5", "ttl"} {
		_ = r.DeleteGroup(context.Background(), g)
	}
	exerciseStore(t, r, nil)
}

func TestMemcache_Integration(t *testing.T) {
	addr := os.Getenv("MEMCACHE_ADDR")
	if addr == "" {
		t.Skip("MEMCACHE_ADDR not set")
	}

	m, err := NewMemcache(MemcacheConfig{Servers: strings.Split(addr, ",")})
	if err != nil {
		t.Fatalf("NewMemcache: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	if err := m.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	for _, g := range []string{"g1", "g2", "g3", "g4", "g5", "ttl"} {
		_ = m.DeleteGroup(context.Background(), g)
	}
	exerciseStore(t, m, nil)
}

func TestRedis_EscapeGlob(t *testing.T) {
	tests := map[string]string{
		"plain":   "plain",
		"a*b":     `a\*b`,
		"q?[x]":   `q\?\[x\]`,
		`back\sl`: `back\\sl`,
	}
	for in, want := range tests {
		if got := escapeGlob(in); got != want {
			t.Errorf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMemcache_Expiration(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewMemcacheFromClient(memcache.New("127.0.0.1:0"), func() time.Time { return now })

	tests := []struct {
		ttl  time.Duration
		want int32
	}{
		{0, 0},
		{-time.Second, 0},
		{500 * time.Millisecond, 1},
		{90 * time.Second, 90},
		{30 * 24 * time.Hour, int32((30 * 24 * time.Hour) / time.Second)},
		{31 * 24 * time.Hour, int32(now.Add(31 * 24 * time.Hour).Unix())},
	}
	for _, tt := range tests {
		if got := m.expiration(tt.ttl); got != tt.want {
			t.Errorf("expiration(%v) = %d, want %d", tt.ttl, got, tt.want)
		}
	}
}
