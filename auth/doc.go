// Package auth authenticates and authorizes requests to the admin API.
//
// Callers present an HS256/384/512 bearer token. JWTAuthenticator validates
// it into an Identity, RoleAuthorizer checks the identity's roles, and
// Middleware ties both into an http.Handler chain. SignToken mints tokens
// for operators.
package auth
