package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRoleAuthorizer(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		id      *Identity
		allowed bool
	}{
		{"has role", "admin", &Identity{Principal: "a", Roles: []string{"admin"}}, true},
		{"missing role", "admin", &Identity{Principal: "b", Roles: []string{"viewer"}}, false},
		{"empty role allows any", "", &Identity{Principal: "c"}, true},
		{"nil identity", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RoleAuthorizer{Role: tt.role}.Authorize(context.Background(), tt.id, "clear")
			if tt.allowed && err != nil {
				t.Errorf("Authorize() error = %v, want nil", err)
			}
			if !tt.allowed && !errors.Is(err, ErrForbidden) {
				t.Errorf("Authorize() error = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestAuthzError_Error(t *testing.T) {
	err := &AuthzError{Subject: "ops", Action: "clear", Reason: "missing role"}
	want := `authorization denied: subject="ops" action="clear" reason="missing role"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %v, want %v", got, want)
	}
}

func TestMiddleware(t *testing.T) {
	authn, _ := NewJWTAuthenticator(JWTConfig{}, testKey)
	authz := RoleAuthorizer{Role: "cache-admin"}

	admin := mustSign(t, testKey, TokenSpec{Subject: "ops", Roles: []string{"cache-admin"}, TTL: time.Hour})
	viewer := mustSign(t, testKey, TokenSpec{Subject: "guest", Roles: []string{"viewer"}, TTL: time.Hour})

	var seen string
	h := Middleware(authn, authz, "clear")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"admin", "Bearer " + admin, http.StatusNoContent},
		{"viewer", "Bearer " + viewer, http.StatusForbidden},
		{"anonymous", "", http.StatusUnauthorized},
		{"garbage", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/fragments/x/clear", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
			if tt.status == http.StatusNoContent && seen != "ops" {
				t.Errorf("principal in context = %q, want ops", seen)
			}
		})
	}
}

func TestMiddleware_InternalError(t *testing.T) {
	failing := AuthenticatorFunc(func(context.Context, http.Header) (*Result, error) {
		return nil, errors.New("backend down")
	})
	h := Middleware(failing, nil, "clear")(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil || PrincipalFromContext(ctx) != "" {
		t.Fatal("empty context carries an identity")
	}
	ctx = WithIdentity(ctx, &Identity{Principal: "ops"})
	if PrincipalFromContext(ctx) != "ops" {
		t.Errorf("PrincipalFromContext() = %q, want ops", PrincipalFromContext(ctx))
	}
}
