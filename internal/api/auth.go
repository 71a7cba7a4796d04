package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"netmon/internal/service"
)

const RoleAdmin = "admin"

var (
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("forbidden")
)

// Claims are the JWT claims accepted by the admin routes.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// ClaimsFrom returns the claims stored by RequireAdmin.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// NewToken signs an HS256 token for username with role.
func NewToken(secret, issuer, username, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateJWT parses and verifies a token signed with secret.
func ValidateJWT(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RequireAdmin rejects requests without a valid bearer token (401) or whose
// token does not carry the admin role (403).
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := h.cfg.Auth.JWTSecret
		if secret == "" {
			h.fail(w, r, requestError(service.ErrUnavailable, "admin authentication is not configured"), true)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.fail(w, r, requestError(errUnauthorized, "Authorization header required"), true)
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			h.fail(w, r, requestError(errUnauthorized, "Invalid authorization format"), true)
			return
		}

		claims, err := ValidateJWT(secret, parts[1])
		if err != nil {
			h.log.WithError(err).Debug("rejected admin token")
			h.fail(w, r, requestError(errUnauthorized, "Invalid or expired token"), true)
			return
		}
		if claims.Role != RoleAdmin {
			h.fail(w, r, requestError(errForbidden, "Admin role required"), true)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
