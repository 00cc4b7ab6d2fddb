// Package auth authenticates the platforms that submit documents. Callers
// present a bearer JWT identifying themselves; handlers read the caller name
// from the request context.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"veridoc/pkg/platform/httputil"
)

const issuer = "veridoc"

// ErrInvalidToken covers every token validation failure, so callers never
// learn which check failed.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims are the JWT claims carried by caller tokens.
type Claims struct {
	Caller string `json:"caller"`
	jwt.RegisteredClaims
}

// TokenService creates and validates caller tokens with a shared HMAC key.
type TokenService struct {
	signingKey []byte
}

// NewTokenService constructs a TokenService.
func NewTokenService(signingKey string) *TokenService {
	return &TokenService{signingKey: []byte(signingKey)}
}

// GenerateToken issues a token naming the caller, valid for ttl.
func (s *TokenService) GenerateToken(caller string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Caller: caller,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type contextKeyCaller struct{}

// Caller returns the authenticated caller name, or "" when unauthenticated.
func Caller(ctx context.Context) string {
	caller, _ := ctx.Value(contextKeyCaller{}).(string)
	return caller
}

// Validator is what the middleware needs from a token service.
type Validator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller name in the request context.
func RequireAuth(validator Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access, missing token", "path", r.URL.Path)
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access, invalid token", "path", r.URL.Path, "error", err)
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyCaller{}, claims.Caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
