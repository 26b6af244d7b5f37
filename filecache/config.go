package filecache

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonwraymond/fragcache/cache"
)

const (
	// DefaultNamespace is used when Config.Namespace is empty.
	DefaultNamespace = "fragment-html-cache"

	// DefaultExtension is the file extension for uncompressed payloads.
	DefaultExtension = ".html"

	// CompressedSuffix is appended to the extension when compression is on.
	CompressedSuffix = ".zst"
)

// Hooks override individual steps of path derivation. Nil fields keep the
// default behavior. Hooks must be safe for concurrent use.
type Hooks struct {
	// Dir maps the namespace to its directory name. The result is
	// sanitized with Slug afterwards.
	Dir func(dir string) string

	// Path maps the default namespace directory, <Root>/<Dir>, to the one used.
	Path func(path string) string

	// Conditions maps the caller's conditions to the set used for naming.
	Conditions func(c cache.Conditions) cache.Conditions

	// Base maps the namespace directory to the directory holding this entry.
	Base func(base string, c cache.Conditions) string

	// Name maps the derived key to the file name, without extension.
	Name func(name string, c cache.Conditions) string

	// File maps the assembled path to the final one.
	File func(path, base, name string, c cache.Conditions) string
}

// Config configures a Store.
type Config struct {
	// Namespace scopes the store. Default: DefaultNamespace.
	Namespace string

	// Root is the parent of namespace directories.
	// Default: <user cache dir>/fragcache.
	Root string

	// Extension is appended to file names. Default: DefaultExtension, plus
	// CompressedSuffix when Compression is set.
	Extension string

	// Compression is a zstd level (1-22). Zero stores payloads verbatim.
	Compression int

	// Keyer derives file names. Default: cache.DefaultKeyer.
	Keyer cache.Keyer

	// Hooks override path derivation.
	Hooks Hooks

	// StartComment and EndComment are wrapped around freshly produced
	// payloads by the orchestrator. Empty emits nothing.
	StartComment string
	EndComment   string
}

func (c Config) withDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Root == "" {
		c.Root = DefaultRoot()
	}
	if c.Extension == "" {
		c.Extension = DefaultExtension
		if c.Compression > 0 {
			c.Extension += CompressedSuffix
		}
	}
	if c.Keyer == nil {
		c.Keyer = cache.NewDefaultKeyer()
	}
	return c
}

// DefaultRoot returns <user cache dir>/fragcache, or a directory under the
// system temp dir when no user cache dir is known.
func DefaultRoot() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "fragcache")
}

// Slug lowercases s and collapses every run of characters outside
// [a-z0-9_-] to a single "-", trimming leading and trailing dashes.
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
			dash = r == '-'
		case !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
