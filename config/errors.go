package config

import "errors"

var (
	// ErrInvalidBackend indicates FRAGCACHE_BACKEND is not file or object.
	ErrInvalidBackend = errors.New("config: unknown backend")

	// ErrInvalidStore indicates FRAGCACHE_OBJECT_STORE names no known store.
	ErrInvalidStore = errors.New("config: unknown object store")

	// ErrNoNamespaces indicates FRAGCACHE_NAMESPACES is empty.
	ErrNoNamespaces = errors.New("config: at least one namespace is required")

	// ErrInvalidNamespace indicates a namespace the selected backend cannot
	// store under.
	ErrInvalidNamespace = errors.New("config: invalid namespace")

	// ErrNamespaceCollision indicates two namespaces that would share storage.
	ErrNamespaceCollision = errors.New("config: namespaces share storage")

	// ErrInvalidCompression indicates a zstd level outside 0-22.
	ErrInvalidCompression = errors.New("config: compression level must be between 0 and 22")

	// ErrMissingStoreAddr indicates the selected remote store has no address.
	ErrMissingStoreAddr = errors.New("config: object store address is required")

	// ErrMissingJWTSecret indicates the admin API has no signing key.
	ErrMissingJWTSecret = errors.New("config: admin JWT secret is required")
)
