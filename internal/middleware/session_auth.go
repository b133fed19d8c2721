package middleware

import (
	"context"
	"net/http"

	"github.com/lucci-xyz/pilot/internal/model"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "pilot_session"

const userContextKey contextKey = "user"

// SessionResolver turns a session token into its user. Expired or unknown
// tokens resolve to an error.
type SessionResolver interface {
	GetSessionUser(ctx context.Context, token string) (*model.User, error)
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUser extracts the authenticated user from the request context.
func GetUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// SessionAuth returns middleware that authenticates requests via the session
// cookie. Unauthenticated JSON calls get 401; redirectTo, when set, sends
// browsers to the login page instead (the requireAuth guard).
func SessionAuth(resolver SessionResolver, redirectTo string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveSessionUser(resolver, r)
			if err != nil || user == nil {
				if redirectTo != "" {
					http.Redirect(w, r, redirectTo, http.StatusSeeOther)
					return
				}
				respondError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveSessionUser(resolver SessionResolver, r *http.Request) (*model.User, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, http.ErrNoCookie
	}
	return resolver.GetSessionUser(r.Context(), cookie.Value)
}
