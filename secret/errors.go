package secret

import "errors"

var (
	// ErrUnknownProvider is returned for references to unregistered providers.
	ErrUnknownProvider = errors.New("secret: provider is not registered")

	// ErrEmptySecret is returned in strict mode when a provider yields "".
	ErrEmptySecret = errors.New("secret: provider returned empty value")

	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrNotFound is returned by providers that have no value for a reference.
	ErrNotFound = errors.New("secret: not found")
)
