// Package app assembles fragments, stores, telemetry and health checks from
// a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jonwraymond/fragcache/cache"
	"github.com/jonwraymond/fragcache/config"
	"github.com/jonwraymond/fragcache/filecache"
	"github.com/jonwraymond/fragcache/health"
	"github.com/jonwraymond/fragcache/kvstore"
	"github.com/jonwraymond/fragcache/objectcache"
	"github.com/jonwraymond/fragcache/observe"
	"github.com/jonwraymond/fragcache/resilience"
)

// Options carry process-level settings that are not part of Config.
type Options struct {
	// Version is reported as the service version.
	Version string

	// LogWriter receives structured logs. Default: os.Stderr.
	LogWriter io.Writer

	// Output is where fragments render. Default: os.Stdout.
	Output io.Writer
}

// App owns every long-lived component. Close releases them.
type App struct {
	Config   config.Config
	Observer observe.Observer
	Logger   observe.Logger
	Registry *prometheus.Registry
	Health   *health.Aggregator

	fragments map[string]*cache.Fragment
	files     map[string]*filecache.Store
	store     kvstore.Store
	closers   []func() error
	closed    bool
}

// New builds an App. cfg must already be validated.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if opts.LogWriter == nil {
		opts.LogWriter = os.Stderr
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obsCfg := cfg.Observe.ToObserve(opts.Version)
	obsCfg.Metrics.Registerer = reg
	obsCfg.Logging.Writer = opts.LogWriter
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("app: observer: %w", err)
	}

	a := &App{
		Config:    cfg,
		Observer:  obs,
		Logger:    obs.Logger(),
		Registry:  reg,
		Health:    health.NewAggregator(),
		fragments: make(map[string]*cache.Fragment, len(cfg.Namespaces)),
		files:     make(map[string]*filecache.Store),
	}

	if err := a.build(ctx, opts); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg := a.Config

	if cfg.Backend == config.BackendObject {
		store, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		a.store = store
	}

	for _, ns := range cfg.Namespaces {
		backend, err := a.newBackend(ns)
		if err != nil {
			return err
		}

		f, err := cache.New(backend,
			cache.WithDebug(cfg.Debug),
			cache.WithCoalescing(cfg.Coalesce),
			cache.WithObserver(a.Observer),
			cache.WithOutput(opts.Output),
		)
		if err != nil {
			return fmt.Errorf("app: namespace %q: %w", ns, err)
		}
		a.fragments[ns] = f
	}
	return nil
}

func (a *App) newBackend(ns string) (cache.Backend, error) {
	cfg := a.Config
	if cfg.Backend == config.BackendObject {
		return objectcache.New(objectcache.Config{
			Group:  ns,
			Policy: objectcache.Policy{DefaultTTL: cfg.Object.DefaultTTL, MaxTTL: cfg.Object.MaxTTL},
			Logger: a.Logger,
			Store:  a.store,
		}), nil
	}

	fs, err := filecache.New(filecache.Config{
		Namespace:    ns,
		Root:         cfg.File.Root,
		Compression:  cfg.File.Compression,
		StartComment: cfg.File.StartComment,
		EndComment:   cfg.File.EndComment,
	})
	if err != nil {
		return nil, fmt.Errorf("app: namespace %q: %w", ns, err)
	}
	a.files[ns] = fs
	a.closers = append(a.closers, fs.Close)
	a.Health.Register("file:"+ns, health.NewDirChecker("file:"+ns, fs.Dir()))
	return fs, nil
}

func (a *App) openStore(ctx context.Context) (kvstore.Store, error) {
	cfg := a.Config

	var (
		store  kvstore.Store
		remote bool
	)
	switch cfg.Object.Store {
	case config.StoreMemory:
		store = kvstore.NewMemory()
	case config.StoreRistretto:
		r, err := kvstore.NewRistretto(kvstore.RistrettoConfig{MaxCost: cfg.Ristretto.MaxCost})
		if err != nil {
			return nil, fmt.Errorf("app: ristretto: %w", err)
		}
		a.closers = append(a.closers, r.Close)
		store = r
	case config.StoreBolt:
		b, err := kvstore.OpenBolt(kvstore.BoltConfig{Path: cfg.Bolt.Path, Timeout: cfg.Bolt.Timeout})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, b.Close)
		store = b
	case config.StoreRedis:
		r := kvstore.NewRedis(kvstore.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			ScanCount: cfg.Redis.ScanCount,
		})
		a.closers = append(a.closers, r.Close)
		store, remote = r, true
	case config.StoreMemcache:
		m, err := kvstore.NewMemcache(kvstore.MemcacheConfig{
			Servers: cfg.Memcache.Servers,
			Timeout: cfg.Memcache.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("app: memcache: %w", err)
		}
		a.closers = append(a.closers, m.Close)
		store, remote = m, true
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStore, cfg.Object.Store)
	}

	name := "store:" + cfg.Object.Store
	if p, ok := store.(kvstore.Pinger); ok {
		a.Health.Register(name, health.NewPingChecker(name, p.Ping))
	}
	if !remote {
		return store, nil
	}

	guarded := kvstore.NewGuarded(store, kvstore.GuardConfig{
		Timeout: cfg.Breaker.CallTimeout,
		Breaker: resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Breaker.MaxFailures,
			ResetTimeout: cfg.Breaker.ResetTimeout,
			OnStateChange: func(from, to resilience.State) {
				a.Logger.Warn(ctx, "store circuit breaker state changed",
					observe.Field{Key: "store", Value: cfg.Object.Store},
					observe.Field{Key: "from", Value: from.String()},
					observe.Field{Key: "to", Value: to.String()},
				)
			},
		},
	})
	a.Health.Register("breaker:"+cfg.Object.Store, health.NewBreakerChecker("breaker:"+cfg.Object.Store, guarded.Breaker()))
	return guarded, nil
}

// Fragment returns the fragment serving namespace ns.
func (a *App) Fragment(ns string) (*cache.Fragment, bool) {
	f, ok := a.fragments[ns]
	return f, ok
}

// Files returns the file store for ns when the file backend is in use.
func (a *App) Files(ns string) (*filecache.Store, bool) {
	fs, ok := a.files[ns]
	return fs, ok
}

// Namespaces returns the configured namespaces, sorted.
func (a *App) Namespaces() []string {
	out := make([]string, 0, len(a.fragments))
	for ns := range a.fragments {
		out = append(out, ns)
	}
	slices.Sort(out)
	return out
}

// Store returns the object store, or nil for the file backend.
func (a *App) Store() kvstore.Store {
	return a.store
}

// RunSweeper removes expired bbolt entries every interval until ctx ends.
// It returns immediately for other stores.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration) error {
	b, ok := a.store.(*kvstore.Bolt)
	if !ok || interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, ns := range a.Namespaces() {
				n, err := b.Sweep(ctx, ns)
				if err != nil {
					a.Logger.Warn(ctx, "bolt sweep failed", observe.Field{Key: "group", Value: ns}, observe.Err(err))
					continue
				}
				if n > 0 {
					a.Logger.Debug(ctx, "bolt sweep", observe.Field{Key: "group", Value: ns}, observe.Field{Key: "removed", Value: n})
				}
			}
		}
	}
}

// Close releases stores and flushes telemetry. Later calls are no-ops.
func (a *App) Close(ctx context.Context) error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.Observer != nil {
		if err := a.Observer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: observer shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
