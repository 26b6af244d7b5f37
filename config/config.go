package config

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jonwraymond/fragcache/filecache"
	"github.com/jonwraymond/fragcache/kvstore"
	"github.com/jonwraymond/fragcache/observe"
	"github.com/jonwraymond/fragcache/secret"
)

// Prefix is prepended to every variable name.
const Prefix = "FRAGCACHE_"

// Backend names.
const (
	BackendFile   = "file"
	BackendObject = "object"
)

// Object store names.
const (
	StoreMemory    = "memory"
	StoreRistretto = "ristretto"
	StoreBolt      = "bolt"
	StoreRedis     = "redis"
	StoreMemcache  = "memcache"
)

// ValidStores lists the accepted FRAGCACHE_OBJECT_STORE values.
var ValidStores = []string{StoreMemory, StoreRistretto, StoreBolt, StoreRedis, StoreMemcache}

// Config is the complete fragcache configuration.
type Config struct {
	// Backend selects file or object storage for every namespace.
	Backend string `env:"BACKEND" envDefault:"file"`

	// Namespaces are the fragment namespaces served by the admin API.
	Namespaces []string `env:"NAMESPACES" envDefault:"fragment-html-cache"`

	Debug    bool `env:"DEBUG"`
	Coalesce bool `env:"COALESCE" envDefault:"true"`

	File      FileConfig      `envPrefix:"FILE_"`
	Object    ObjectConfig    `envPrefix:"OBJECT_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Memcache  MemcacheConfig  `envPrefix:"MEMCACHE_"`
	Bolt      BoltConfig      `envPrefix:"BOLT_"`
	Ristretto RistrettoConfig `envPrefix:"RISTRETTO_"`
	Breaker   BreakerConfig   `envPrefix:"BREAKER_"`
	Admin     AdminConfig     `envPrefix:"ADMIN_"`
	Observe   ObserveConfig   `envPrefix:"OBSERVE_"`
}

// FileConfig configures the file backend.
type FileConfig struct {
	Root         string `env:"ROOT"`
	Compression  int    `env:"COMPRESSION"`
	StartComment string `env:"START_COMMENT"`
	EndComment   string `env:"END_COMMENT"`
}

// ObjectConfig configures the object backend.
type ObjectConfig struct {
	Store      string        `env:"STORE" envDefault:"memory"`
	DefaultTTL time.Duration `env:"DEFAULT_TTL" envDefault:"720h"`
	MaxTTL     time.Duration `env:"MAX_TTL"`
}

// RedisConfig configures the redis store.
type RedisConfig struct {
	Addr      string `env:"ADDR"`
	Username  string `env:"USERNAME"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB"`
	ScanCount int64  `env:"SCAN_COUNT" envDefault:"500"`
}

// MemcacheConfig configures the memcache store.
type MemcacheConfig struct {
	Servers []string      `env:"SERVERS"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"500ms"`
}

// BoltConfig configures the bbolt store.
type BoltConfig struct {
	Path          string        `env:"PATH"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"1s"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
}

// RistrettoConfig configures the in-process ristretto store.
type RistrettoConfig struct {
	MaxCost int64 `env:"MAX_COST" envDefault:"67108864"`
}

// BreakerConfig guards remote stores.
type BreakerConfig struct {
	MaxFailures  int           `env:"MAX_FAILURES" envDefault:"5"`
	ResetTimeout time.Duration `env:"RESET_TIMEOUT" envDefault:"30s"`
	CallTimeout  time.Duration `env:"CALL_TIMEOUT" envDefault:"250ms"`
}

// AdminConfig configures the admin HTTP server.
type AdminConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	JWTSecret       string        `env:"JWT_SECRET"`
	JWTIssuer       string        `env:"JWT_ISSUER"`
	JWTAudience     string        `env:"JWT_AUDIENCE"`
	Role            string        `env:"ROLE" envDefault:"cache-admin"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	ServiceName     string  `env:"SERVICE_NAME" envDefault:"fragcache"`
	TracingEnabled  bool    `env:"TRACING_ENABLED"`
	TracingExporter string  `env:"TRACING_EXPORTER" envDefault:"none"`
	SamplePct       float64 `env:"SAMPLE_PCT" envDefault:"1"`
	MetricsEnabled  bool    `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsExporter string  `env:"METRICS_EXPORTER" envDefault:"prometheus"`
	LogLevel        string  `env:"LOG_LEVEL" envDefault:"info"`
}

// Parse reads the configuration from environ, or from the process
// environment when environ is nil. Secrets are left unresolved.
func Parse(environ map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{
		Prefix:      Prefix,
		Environment: environ,
	})
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Load parses the process environment, resolves secrets with the default
// resolver and validates the result.
func Load(ctx context.Context) (Config, error) {
	cfg, err := Parse(nil)
	if err != nil {
		return Config{}, err
	}

	r := secret.NewDefaultResolver()
	defer r.Close()
	if err := cfg.ResolveSecrets(ctx, r); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ResolveSecrets replaces secret references in secret-bearing fields.
func (c *Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	if err := r.ResolveFields(ctx, map[string]*string{
		"redis password":   &c.Redis.Password,
		"admin jwt secret": &c.Admin.JWTSecret,
	}); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate checks the storage settings. Admin settings are checked by
// ValidateAdmin.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendObject:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
	}

	if len(c.Namespaces) == 0 || slices.Contains(c.Namespaces, "") {
		return ErrNoNamespaces
	}
	if err := c.validateNamespaces(); err != nil {
		return err
	}

	if c.File.Compression < 0 || c.File.Compression > 22 {
		return fmt.Errorf("%w, got: %d", ErrInvalidCompression, c.File.Compression)
	}

	if c.Backend == BackendObject {
		if !slices.Contains(ValidStores, c.Object.Store) {
			return fmt.Errorf("%w: %q", ErrInvalidStore, c.Object.Store)
		}
		switch {
		case c.Object.Store == StoreRedis && c.Redis.Addr == "":
			return fmt.Errorf("%w: FRAGCACHE_REDIS_ADDR", ErrMissingStoreAddr)
		case c.Object.Store == StoreMemcache && len(c.Memcache.Servers) == 0:
			return fmt.Errorf("%w: FRAGCACHE_MEMCACHE_SERVERS", ErrMissingStoreAddr)
		case c.Object.Store == StoreBolt && c.Bolt.Path == "":
			return fmt.Errorf("%w: FRAGCACHE_BOLT_PATH", ErrMissingStoreAddr)
		}
	}

	obs := c.Observe.ToObserve("")
	return obs.Validate()
}

// validateNamespaces rejects names the backend cannot store and names that
// resolve to the same directory or group.
func (c *Config) validateNamespaces() error {
	seen := make(map[string]string, len(c.Namespaces))
	for _, ns := range c.Namespaces {
		id := ns
		if c.Backend == BackendFile {
			id = filecache.Slug(ns)
			if id == "" {
				return fmt.Errorf("%w: %q has no usable directory name", ErrInvalidNamespace, ns)
			}
		} else if err := kvstore.ValidateName(ns); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidNamespace, ns, err)
		}

		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: %q and %q both map to %q", ErrNamespaceCollision, prev, ns, id)
		}
		seen[id] = ns
	}
	return nil
}

// ValidateAdmin checks the settings the admin server needs.
func (c *Config) ValidateAdmin() error {
	if c.Admin.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// ToObserve converts the section to an observe.Config.
func (o ObserveConfig) ToObserve(version string) observe.Config {
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   o.TracingEnabled,
			Exporter:  o.TracingExporter,
			SamplePct: o.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.MetricsEnabled,
			Exporter: o.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.LogLevel,
		},
	}
}
