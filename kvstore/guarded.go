package kvstore

import (
	"context"
	"time"

	"github.com/jonwraymond/fragcache/resilience"
)

// Guarded runs every call on an inner Store through a resilience executor.
// Once the breaker opens, calls fail immediately with
// resilience.ErrCircuitOpen instead of waiting on a dead server.
type Guarded struct {
	store Store
	exec  *resilience.Executor
}

// GuardConfig configures a Guarded store.
type GuardConfig struct {
	// Timeout bounds each call. Zero disables the timeout.
	Timeout time.Duration

	// Breaker configures the circuit breaker. A zero MaxFailures uses the
	// breaker default.
	Breaker resilience.CircuitBreakerConfig
}

// NewGuarded wraps store.
func NewGuarded(store Store, cfg GuardConfig) *Guarded {
	opts := []resilience.ExecutorOption{
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(cfg.Breaker)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, resilience.WithTimeout(cfg.Timeout))
	}
	return &Guarded{store: store, exec: resilience.NewExecutor(opts...)}
}

// NewGuardedWithExecutor wraps store with a caller-built executor.
func NewGuardedWithExecutor(store Store, exec *resilience.Executor) *Guarded {
	return &Guarded{store: store, exec: exec}
}

// Unwrap returns the inner store.
func (g *Guarded) Unwrap() Store {
	return g.store
}

// Breaker returns the circuit breaker, or nil when the executor has none.
func (g *Guarded) Breaker() *resilience.CircuitBreaker {
	return g.exec.CircuitBreaker()
}

// Get calls the inner Get through the executor. Invalid names are rejected
// before the executor so they never count as breaker failures.
func (g *Guarded) Get(ctx context.Context, group, key string) ([]byte, bool, error) {
	if err := validate(group, key); err != nil {
		return nil, false, err
	}
	var (
		value []byte
		ok    bool
	)
	err := g.exec.Execute(ctx, func(ctx context.Context) error {
		v, found, err := g.store.Get(ctx, group, key)
		if err != nil {
			return err
		}
		value, ok = v, found
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, ok, nil
}

// Set calls the inner Set through the executor.
func (g *Guarded) Set(ctx context.Context, group, key string, value []byte, ttl time.Duration) error {
	if err := validate(group, key); err != nil {
		return err
	}
	return g.exec.Execute(ctx, func(ctx context.Context) error {
		return g.store.Set(ctx, group, key, value, ttl)
	})
}

// Delete calls the inner Delete through the executor.
func (g *Guarded) Delete(ctx context.Context, group, key string) error {
	if err := validate(group, key); err != nil {
		return err
	}
	return g.exec.Execute(ctx, func(ctx context.Context) error {
		return g.store.Delete(ctx, group, key)
	})
}

// DeleteGroup forwards to the inner store, or returns ErrUnsupported.
func (g *Guarded) DeleteGroup(ctx context.Context, group string) error {
	gd, ok := g.store.(GroupDeleter)
	if !ok {
		return ErrUnsupported
	}
	if err := ValidateName(group); err != nil {
		return err
	}
	return g.exec.Execute(ctx, func(ctx context.Context) error {
		return gd.DeleteGroup(ctx, group)
	})
}

// Ping forwards to the inner store, bypassing the breaker so health checks
// can observe recovery. Stores without Ping report nil.
func (g *Guarded) Ping(ctx context.Context) error {
	if p, ok := g.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

var (
	_ Store        = (*Guarded)(nil)
	_ GroupDeleter = (*Guarded)(nil)
	_ Pinger       = (*Guarded)(nil)
)
