package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/lucci-xyz/pilot/internal/model"
)

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// APIKeyVerifier resolves a plaintext API key to its record, recording the
// use as a side effect.
type APIKeyVerifier interface {
	Verify(ctx context.Context, plainKey string) (*model.APIKey, error)
}

// WithAPIKey returns a context carrying the authenticated API key.
func WithAPIKey(ctx context.Context, key *model.APIKey) context.Context {
	return context.WithValue(ctx, apiKeyContextKey, key)
}

// GetAPIKey extracts the authenticated API key from the request context.
func GetAPIKey(ctx context.Context) *model.APIKey {
	key, _ := ctx.Value(apiKeyContextKey).(*model.APIKey)
	return key
}

// APIKeyAuth returns middleware that authenticates requests via Bearer token.
func APIKeyAuth(verifier APIKeyVerifier, limiter *AuthAttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attemptKey := ClientIPKey(r, "api_key")
			if limiter != nil && !limiter.Allow(attemptKey) {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Too many authentication failures")
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				if limiter != nil {
					limiter.RegisterFailure(attemptKey)
				}
				respondError(w, http.StatusUnauthorized, "invalid_api_key", "Missing API key")
				return
			}

			apiKey, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if limiter != nil {
					limiter.RegisterFailure(attemptKey)
				}
				respondError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid or expired API key")
				return
			}

			if limiter != nil {
				limiter.RegisterSuccess(attemptKey)
			}
			ctx := WithAPIKey(r.Context(), apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission returns middleware that rejects API keys lacking the
// given permission token.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := GetAPIKey(r.Context())
			if apiKey == nil {
				respondError(w, http.StatusUnauthorized, "invalid_api_key", "Missing API key")
				return
			}
			if !apiKey.HasPermission(perm) {
				respondError(w, http.StatusForbidden, "insufficient_permissions", "API key lacks the "+perm+" permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// SHA256Hex returns the hex-encoded SHA-256 hash of the input.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}
