package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// BoltConfig configures a Bolt store.
type BoltConfig struct {
	// Path is the database file. Required.
	Path string

	// Timeout bounds waiting for the file lock. Default: 1s.
	Timeout time.Duration

	// Clock is used for expiry. Default: time.Now.
	Clock Clock
}

// Bolt is a persistent single-file Store. Each group is a bucket; values
// carry an expiry prefix and expired entries read as misses until
// overwritten or swept.
type Bolt struct {
	db  *bolt.DB
	now Clock
}

// OpenBolt opens or creates the database at cfg.Path.
func OpenBolt(cfg BoltConfig) (*Bolt, error) {
	if cfg.Path == "" {
		return nil, errors.New("kvstore: bolt path is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("kvstore: open bolt %s: %w", cfg.Path, err)
	}
	return &Bolt{db: db, now: cfg.Clock}, nil
}

// Get returns the value for key in group.
func (b *Bolt) Get(_ context.Context, group, key string) ([]byte, bool, error) {
	if err := validate(group, key); err != nil {
		return nil, false, err
	}

	var (
		value []byte
		ok    bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(group))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		var err error
		value, ok, err = decodeEntry(raw, b.now())
		return err
	})
	if err != nil {
		return nil, false, translateBoltErr("get", err)
	}
	return value, ok, nil
}

// Set stores value under key in group, creating the bucket if needed.
func (b *Bolt) Set(_ context.Context, group, key string, value []byte, ttl time.Duration) error {
	if err := validate(group, key); err != nil {
		return err
	}

	entry := encodeEntry(value, ttl, b.now())
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(group))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), entry)
	})
	return translateBoltErr("set", err)
}

// Delete removes key from group.
func (b *Bolt) Delete(_ context.Context, group, key string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(group))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	return translateBoltErr("delete", err)
}

// DeleteGroup drops the group's bucket.
func (b *Bolt) DeleteGroup(_ context.Context, group string) error {
	if err := ValidateName(group); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(group))
		if errors.Is(err, berrors.ErrBucketNotFound) {
			return nil
		}
		return err
	})
	return translateBoltErr("delete group", err)
}

// Sweep deletes expired entries in group and reports how many were removed.
func (b *Bolt) Sweep(ctx context.Context, group string) (int, error) {
	now := b.now()
	removed := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(group))
		if bucket == nil {
			return nil
		}
		var expired [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, live, err := decodeEntry(v, now); err != nil || !live {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, translateBoltErr("sweep", err)
}

// Ping verifies the database is open.
func (b *Bolt) Ping(context.Context) error {
	return translateBoltErr("ping", b.db.View(func(*bolt.Tx) error { return nil }))
}

// Close closes the database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func translateBoltErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, berrors.ErrDatabaseNotOpen):
		return fmt.Errorf("kvstore: bolt %s: %w", op, ErrClosed)
	default:
		return fmt.Errorf("kvstore: bolt %s: %w", op, err)
	}
}

var (
	_ Store        = (*Bolt)(nil)
	_ GroupDeleter = (*Bolt)(nil)
	_ Pinger       = (*Bolt)(nil)
)
