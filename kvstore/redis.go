package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a Redis store.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	// ScanCount is the SCAN batch hint used by DeleteGroup. Default: 500.
	ScanCount int64
}

// Redis is a Store backed by a Redis server. Keys are "<group>:<key>"; TTLs
// are enforced by the server.
type Redis struct {
	rdb       *redis.Client
	scanCount int64
}

// NewRedis connects lazily to the configured server.
func NewRedis(cfg RedisConfig) *Redis {
	return NewRedisFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.ScanCount)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(rdb *redis.Client, scanCount int64) *Redis {
	if scanCount <= 0 {
		scanCount = 500
	}
	return &Redis{rdb: rdb, scanCount: scanCount}
}

func redisKey(group, key string) string {
	return group + ":" + key
}

// Get returns the value for key in group.
func (r *Redis) Get(ctx context.Context, group, key string) ([]byte, bool, error) {
	if err := validate(group, key); err != nil {
		return nil, false, err
	}

	val, err := r.rdb.Get(ctx, redisKey(group, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kvstore: redis get: %w", err)
	}
	return val, true, nil
}

// Set stores value under key in group.
func (r *Redis) Set(ctx context.Context, group, key string, value []byte, ttl time.Duration) error {
	if err := validate(group, key); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}

	if err := r.rdb.Set(ctx, redisKey(group, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("kvstore: redis set: %w", err)
	}
	return nil
}

// Delete removes key from group.
func (r *Redis) Delete(ctx context.Context, group, key string) error {
	if err := validate(group, key); err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, redisKey(group, key)).Err(); err != nil {
		return fmt.Errorf("kvstore: redis del: %w", err)
	}
	return nil
}

// DeleteGroup scans for "<group>:*" and unlinks matches in batches. Groups
// cannot contain ':', so the pattern never reaches another group's keys.
func (r *Redis) DeleteGroup(ctx context.Context, group string) error {
	if err := ValidateName(group); err != nil {
		return err
	}

	iter := r.rdb.Scan(ctx, 0, escapeGlob(group)+":*", r.scanCount).Iterator()
	batch := make([]string, 0, r.scanCount)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := r.rdb.Unlink(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if int64(len(batch)) >= r.scanCount {
			if err := flush(); err != nil {
				return fmt.Errorf("kvstore: redis unlink: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("kvstore: redis scan: %w", err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("kvstore: redis unlink: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

var (
	_ Store        = (*Redis)(nil)
	_ GroupDeleter = (*Redis)(nil)
	_ Pinger       = (*Redis)(nil)
)
