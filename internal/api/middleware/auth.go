package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// The engine trusts the identity provider: tokens carry the caller's user ID
// and roles, and nothing here second-guesses them beyond signature and
// expiry checks.

// Claims is the JWT payload issued by the identity collaborator.
type Claims struct {
	Username string   `json:"username"`
	UserID   string   `json:"userId"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims carry the administrator role.
func (c *Claims) IsAdmin() bool {
	for _, role := range c.Roles {
		if role == "admin" {
			return true
		}
	}
	return false
}

// ContextKey is the type for request context keys set by auth middleware.
type ContextKey string

const (
	UserIDKey  ContextKey = "userId"
	IsAdminKey ContextKey = "isAdmin"
)

// Auth validates bearer tokens and injects the caller's identity into the
// request context.
type Auth struct {
	secret []byte
}

// NewAuth creates auth middleware around the shared token secret.
func NewAuth(secret []byte) *Auth {
	return &Auth{secret: secret}
}

// Require rejects requests without a valid bearer token.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parse(r)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Missing or invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims)))
	})
}

// RequireAdmin rejects requests unless the token carries the admin role.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parse(r)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Missing or invalid token")
			return
		}
		if !claims.IsAdmin() {
			WriteError(w, http.StatusForbidden, ErrForbidden, "Administrator role required")
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims)))
	})
}

// Optional injects identity when a valid token is present and proceeds
// anonymously otherwise.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, err := a.parse(r); err == nil {
			r = r.WithContext(withIdentity(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) parse(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, jwt.ErrTokenMalformed
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}

func withIdentity(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	return context.WithValue(ctx, IsAdminKey, claims.IsAdmin())
}

// UserID extracts the authenticated caller from the request context.
// The empty string means anonymous.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// IsAdmin reports whether the authenticated caller holds the admin role.
func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(IsAdminKey).(bool)
	return admin
}
