package filecache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/jonwraymond/fragcache/cache"
)

// Store is a file-backed cache.Backend. It is safe for concurrent use.
type Store struct {
	namespace string
	dir       string
	ext       string
	keyer     cache.Keyer
	hooks     Hooks
	start     string
	end       string

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Stats summarizes the contents of a namespace directory.
type Stats struct {
	Files  int
	Dirs   int
	Bytes  int64
	Newest time.Time
}

// New creates a Store. The namespace directory is not created until the
// first write or clear.
func New(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()

	dirName := cfg.Namespace
	if cfg.Hooks.Dir != nil {
		dirName = cfg.Hooks.Dir(dirName)
	}
	dirName = Slug(dirName)
	if dirName == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, cfg.Namespace)
	}

	dir := filepath.Join(cfg.Root, dirName)
	if cfg.Hooks.Path != nil {
		dir = cfg.Hooks.Path(dir)
	}
	if dir == "" {
		return nil, fmt.Errorf("filecache: namespace %q: %w", cfg.Namespace, cache.ErrInvalidPath)
	}

	s := &Store{
		namespace: cfg.Namespace,
		dir:       filepath.Clean(dir),
		ext:       cfg.Extension,
		keyer:     cfg.Keyer,
		hooks:     cfg.Hooks,
		start:     cfg.StartComment,
		end:       cfg.EndComment,
	}

	if cfg.Compression > 0 {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(cfg.Compression)))
		if err != nil {
			return nil, fmt.Errorf("filecache: zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			_ = enc.Close()
			return nil, fmt.Errorf("filecache: zstd decoder: %w", err)
		}
		s.encoder = enc
		s.decoder = dec
	}

	return s, nil
}

// Namespace returns the configured namespace.
func (s *Store) Namespace() string { return s.namespace }

// Kind reports "file".
func (s *Store) Kind() string { return "file" }

// Dir returns the namespace directory.
func (s *Store) Dir() string { return s.dir }

// Compressed reports whether payloads are stored zstd-compressed.
func (s *Store) Compressed() bool { return s.encoder != nil }

// StartMarker returns the configured start comment.
func (s *Store) StartMarker(cache.Conditions) string { return s.start }

// EndMarker returns the configured end comment.
func (s *Store) EndMarker(cache.Conditions) string { return s.end }

// ResolvePath returns the file that stores the payload for c.
// The hooks run in order: Conditions, Base, Name, File.
func (s *Store) ResolvePath(c cache.Conditions) (string, error) {
	if s.hooks.Conditions != nil {
		c = s.hooks.Conditions(c.Clone())
	}

	base := s.dir
	if s.hooks.Base != nil {
		base = s.hooks.Base(base, c)
	}

	name, err := s.keyer.Key(c)
	if err != nil {
		return "", err
	}
	if s.hooks.Name != nil {
		name = s.hooks.Name(name, c)
	}

	var path string
	if name != "" {
		path = filepath.Join(base, name+s.ext)
	}
	if s.hooks.File != nil {
		path = s.hooks.File(path, base, name, c)
	}
	if path == "" {
		return "", cache.ErrInvalidPath
	}
	return path, nil
}

// Read returns the stored payload for c. A missing file is a miss.
func (s *Store) Read(ctx context.Context, c cache.Conditions) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	path, err := s.ResolvePath(c)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %w", cache.ErrStorageUnavailable, err)
	}
	if len(data) == 0 {
		return nil, false, nil
	}

	if s.decoder != nil {
		data, err = s.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, false, fmt.Errorf("%w: decode %s: %w", cache.ErrStorageUnavailable, path, err)
		}
	}
	return data, true, nil
}

// Write stores payload for c. The file is written to a temporary name in
// the target directory and renamed into place.
func (s *Store) Write(ctx context.Context, payload []byte, c cache.Conditions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	path, err := s.ResolvePath(c)
	if err != nil {
		return err
	}

	data := payload
	if s.encoder != nil {
		data = s.encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
	}

	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %w", cache.ErrStorageUnavailable, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		return err
	}
	if n == 0 {
		_ = tmp.Close()
		return ErrEmptyPayload
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	tmpPath = ""
	return nil
}

// Clear removes everything below the namespace directory.
func (s *Store) Clear(ctx context.Context) error {
	return s.ClearPath(ctx, "")
}

// ClearPath removes everything below sub, a path relative to the namespace
// directory. Afterwards the directory exists and is empty. Symlinks are
// removed, never followed.
func (s *Store) ClearPath(ctx context.Context, sub string) error {
	target, err := s.subdir(sub)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("%w: %w", cache.ErrStorageUnavailable, err)
	}
	if err := removeContents(ctx, target); err != nil {
		return fmt.Errorf("%w: clear %s: %w", cache.ErrStorageUnavailable, target, err)
	}
	return nil
}

// Stats walks sub, a path relative to the namespace directory. A missing
// directory reports zero stats.
func (s *Store) Stats(ctx context.Context, sub string) (Stats, error) {
	var st Stats
	root, err := s.subdir(sub)
	if err != nil {
		return st, err
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			st.Dirs++
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		st.Files++
		st.Bytes += info.Size()
		if info.ModTime().After(st.Newest) {
			st.Newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("filecache: stats %s: %w", root, err)
	}
	return st, nil
}

// Close releases the compression resources. The Store must not be used
// afterwards when compression is enabled.
func (s *Store) Close() error {
	if s.decoder != nil {
		s.decoder.Close()
	}
	if s.encoder != nil {
		return s.encoder.Close()
	}
	return nil
}

// subdir resolves sub below the namespace directory. Absolute paths, ".."
// and existing symlinks along the way are rejected with ErrPathEscape.
func (s *Store) subdir(sub string) (string, error) {
	if sub == "" {
		return s.dir, nil
	}
	if filepath.IsAbs(sub) || strings.HasPrefix(sub, "/") {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, sub)
	}
	parts := strings.FieldsFunc(sub, isSeparator)
	if slices.Contains(parts, "..") {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, sub)
	}

	path := s.dir
	for _, part := range parts {
		if part == "." {
			continue
		}
		path = filepath.Join(path, part)
		info, err := os.Lstat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Nothing below a missing component exists yet.
			return filepath.Join(s.dir, sub), nil
		case err != nil:
			return "", fmt.Errorf("%w: %w", cache.ErrStorageUnavailable, err)
		case info.Mode()&fs.ModeSymlink != 0:
			return "", fmt.Errorf("%w: %q is a symlink", ErrPathEscape, sub)
		}
	}
	return path, nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}

// removeContents deletes every entry below dir depth-first. Failures are
// collected and deletion continues.
func removeContents(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	var errs []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		path := filepath.Join(dir, entry.Name())
		// Type bits come from lstat, so a symlink to a directory is not IsDir.
		if entry.IsDir() {
			if err := removeContents(ctx, path); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
