package auth

import (
	"context"
	"fmt"
)

// Authorizer decides whether an identity may perform an action.
type Authorizer interface {
	// Authorize returns nil if permitted, or an error matching ErrForbidden.
	Authorize(ctx context.Context, id *Identity, action string) error
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	Subject string
	Action  string
	Reason  string
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: subject=%q action=%q reason=%q", e.Subject, e.Action, e.Reason)
}

// Is reports whether target is ErrForbidden.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// RoleAuthorizer permits identities carrying Role. An empty Role permits
// every authenticated identity.
type RoleAuthorizer struct {
	Role string
}

// Authorize checks the identity's roles.
func (a RoleAuthorizer) Authorize(_ context.Context, id *Identity, action string) error {
	if id == nil {
		return &AuthzError{Action: action, Reason: "no identity"}
	}
	if a.Role == "" || id.HasRole(a.Role) {
		return nil
	}
	return &AuthzError{
		Subject: id.Principal,
		Action:  action,
		Reason:  fmt.Sprintf("missing role %q", a.Role),
	}
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, id *Identity, action string) error

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context, id *Identity, action string) error {
	return f(ctx, id, action)
}
