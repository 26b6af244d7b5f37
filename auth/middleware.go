package auth

import (
	"errors"
	"net/http"
)

// Middleware authenticates each request with authn and authorizes action
// with authz. Failures answer 401 (credentials), 403 (authorization) or 500
// (internal error). The identity is attached to the request context.
//
// Usage:
//
//	mux.Handle("POST /fragments/{namespace}/clear", auth.Middleware(authn, authz, "clear")(h))
func Middleware(authn Authenticator, authz Authorizer, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			res, err := authn.Authenticate(ctx, r.Header)
			if err != nil {
				http.Error(w, "authentication unavailable", http.StatusInternalServerError)
				return
			}
			if !res.Authenticated {
				w.Header().Set("WWW-Authenticate", `Bearer realm="fragcache"`)
				http.Error(w, errorText(res.Error, ErrInvalidCredentials), http.StatusUnauthorized)
				return
			}

			if authz != nil {
				if err := authz.Authorize(ctx, res.Identity, action); err != nil {
					if errors.Is(err, ErrForbidden) {
						http.Error(w, ErrForbidden.Error(), http.StatusForbidden)
						return
					}
					http.Error(w, "authorization unavailable", http.StatusInternalServerError)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, res.Identity)))
		})
	}
}

func errorText(err, fallback error) string {
	if err == nil {
		return fallback.Error()
	}
	return err.Error()
}
