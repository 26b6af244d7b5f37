package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRolesClaim is the claim holding roles when JWTConfig.RolesClaim is empty.
const DefaultRolesClaim = "roles"

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected iss claim. Empty skips the check.
	Issuer string

	// Audience is the expected aud claim. Empty skips the check.
	Audience string

	// RolesClaim is the claim containing roles.
	// Default: "roles"
	RolesClaim string

	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration

	// Methods are the accepted signing algorithms.
	// Default: HS256, HS384, HS512
	Methods []string

	// Now overrides the validation clock.
	Now func() time.Time
}

// JWTAuthenticator validates HMAC-signed bearer tokens from the
// Authorization header.
type JWTAuthenticator struct {
	config JWTConfig
	key    []byte
	parser *jwt.Parser
}

// NewJWTAuthenticator creates a JWT authenticator verifying with key.
func NewJWTAuthenticator(config JWTConfig, key []byte) (*JWTAuthenticator, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	if config.RolesClaim == "" {
		config.RolesClaim = DefaultRolesClaim
	}
	if len(config.Methods) == 0 {
		config.Methods = []string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(config.Methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	if config.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(config.Now))
	}

	return &JWTAuthenticator{
		config: config,
		key:    key,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Authenticate validates the bearer token in header.
func (a *JWTAuthenticator) Authenticate(_ context.Context, header http.Header) (*Result, error) {
	tokenString, ok := bearerToken(header)
	if !ok {
		return Failure(ErrMissingCredentials), nil
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Failure(ErrTokenExpired), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Failure(ErrTokenMalformed), nil
	default:
		return Failure(ErrInvalidCredentials), nil
	}

	return Success(a.buildIdentity(claims)), nil
}

func bearerToken(header http.Header) (string, bool) {
	value := header.Get("Authorization")
	scheme, token, found := strings.Cut(value, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (a *JWTAuthenticator) buildIdentity(claims jwt.MapClaims) *Identity {
	id := &Identity{Claims: make(map[string]any, len(claims))}
	for k, v := range claims {
		id.Claims[k] = v
	}

	id.Principal, _ = claims.GetSubject()

	switch roles := claims[a.config.RolesClaim].(type) {
	case []any:
		id.Roles = make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	case string:
		id.Roles = strings.Fields(roles)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id
}

// TokenSpec describes a token to mint with SignToken.
type TokenSpec struct {
	Subject  string
	Roles    []string
	Issuer   string
	Audience string
	TTL      time.Duration
	Now      time.Time
}

// SignToken mints an HS256 token for spec.
func SignToken(key []byte, spec TokenSpec) (string, error) {
	if len(key) == 0 {
		return "", ErrMissingKey
	}
	now := spec.Now
	if now.IsZero() {
		now = time.Now()
	}

	claims := jwt.MapClaims{
		"sub":             spec.Subject,
		"iat":             jwt.NewNumericDate(now),
		"exp":             jwt.NewNumericDate(now.Add(spec.TTL)),
		DefaultRolesClaim: spec.Roles,
	}
	if spec.Issuer != "" {
		claims["iss"] = spec.Issuer
	}
	if spec.Audience != "" {
		claims["aud"] = spec.Audience
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

var _ Authenticator = (*JWTAuthenticator)(nil)
