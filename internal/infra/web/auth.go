package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Session/JWT primitives =====

type AuthConfig struct {
	HMACSecret []byte
	TTL        time.Duration
}

type AuthManager struct{ cfg AuthConfig }

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	return &AuthManager{cfg: AuthConfig{
		HMACSecret: []byte(secret),
		TTL:        ttl, // e.g., 24 * time.Hour
	}}
}

type UserClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *UserClaims) UserID() string { return c.Subject }
func (c *UserClaims) IsAdmin() bool  { return c.Role == "admin" }

// Mint issues a signed token for userID. Used by tests and by whatever
// upstream identity service fronts this API.
func (a *AuthManager) Mint(userID, role string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.cfg.HMACSecret)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*UserClaims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
	}
	return nil, errors.New("missing token")
}

func (a *AuthManager) parse(tok string) (*UserClaims, error) {
	claims := &UserClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token carries no subject")
	}
	return claims, nil
}

type ctxKey string

const claimsKey ctxKey = "claims"

// requireAuth rejects requests without a valid bearer token and stores the
// claims on the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// requireAdmin accepts either an admin role claim or the configured API
// key in the Authorization header.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminAPIKey != "" {
			hdr := r.Header.Get("Authorization")
			if strings.TrimSpace(strings.TrimPrefix(hdr, "Bearer")) == s.adminAPIKey {
				next.ServeHTTP(w, r)
				return
			}
		}
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil || !claims.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// userFrom returns the authenticated user id, or "" when the request
// carried no claims (admin API key path).
func userFrom(ctx context.Context) string {
	if claims, ok := ctx.Value(claimsKey).(*UserClaims); ok {
		return claims.UserID()
	}
	return ""
}
