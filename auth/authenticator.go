package auth

import (
	"context"
	"net/http"
)

// Authenticator validates request credentials.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Authenticate returns (nil, error) for internal errors and
//   (Result, nil) for credential failures (check Result.Authenticated).
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, header http.Header) (*Result, error)
}

// Result is the outcome of an authentication attempt.
type Result struct {
	// Authenticated is true if authentication succeeded.
	Authenticated bool

	// Identity is set when Authenticated is true.
	Identity *Identity

	// Error is set when Authenticated is false.
	Error error
}

// Success creates a successful result.
func Success(id *Identity) *Result {
	return &Result{Authenticated: true, Identity: id}
}

// Failure creates a failed result.
func Failure(err error) *Result {
	return &Result{Error: err}
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, header http.Header) (*Result, error)

// Name returns "func".
func (f AuthenticatorFunc) Name() string { return "func" }

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, header http.Header) (*Result, error) {
	return f(ctx, header)
}
