package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RoleAdmin marks back-office principals.
const RoleAdmin = "admin"

// Principal is the authenticated caller extracted from the JWT.
type Principal struct {
	ID    uuid.UUID
	Phone string
	Role  string
}

// Admin reports whether the principal may use back-office endpoints.
func (p Principal) Admin() bool {
	return p.Role == RoleAdmin
}

type contextKey struct{}

// FromContext returns the principal stored by Auth.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

type claims struct {
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Auth validates the Bearer token and stores the principal in the
// request context. Tokens are HMAC-signed by the account service; this
// side only verifies.
func Auth(signingKey string, logger zerolog.Logger) func(http.Handler) http.Handler {
	key := []byte(signingKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "unauthorised: missing bearer token", http.StatusUnauthorized)
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			var c claims
			token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("token validation failed")
				http.Error(w, "unauthorised: invalid token", http.StatusUnauthorized)
				return
			}

			userID, err := uuid.Parse(c.Subject)
			if err != nil {
				logger.Warn().Str("sub", c.Subject).Msg("token subject is not a uuid")
				http.Error(w, "unauthorised: invalid token", http.StatusUnauthorized)
				return
			}

			principal := Principal{ID: userID, Phone: c.Phone, Role: c.Role}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, principal)))
		})
	}
}

// RequireAdmin rejects non-admin principals. Must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok || !p.Admin() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
