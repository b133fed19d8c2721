package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/lucci-xyz/pilot/internal/model"
)

type fakeSessionResolver struct {
	users map[string]*model.User
}

func (f *fakeSessionResolver) GetSessionUser(_ context.Context, token string) (*model.User, error) {
	user, ok := f.users[token]
	if !ok {
		return nil, errors.New("session not found")
	}
	return user, nil
}

func TestSessionAuth(t *testing.T) {
	user := &model.User{ID: uuid.New(), Email: "demo@pilot.app"}
	resolver := &fakeSessionResolver{users: map[string]*model.User{"good-token": user}}

	var gotUser *model.User
	h := SessionAuth(resolver, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid cookie", func(t *testing.T) {
		gotUser = nil
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good-token"})
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", rr.Code)
		}
		if gotUser == nil || gotUser.ID != user.ID {
			t.Fatal("expected user in request context")
		}
	})

	t.Run("missing cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("unexpected status %d", rr.Code)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bad-token"})
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("unexpected status %d", rr.Code)
		}
	})

	t.Run("redirect mode", func(t *testing.T) {
		guard := SessionAuth(resolver, "/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/app", nil)
		rr := httptest.NewRecorder()

		guard.ServeHTTP(rr, req)

		if rr.Code != http.StatusSeeOther {
			t.Fatalf("unexpected status %d", rr.Code)
		}
		if loc := rr.Header().Get("Location"); loc != "/login" {
			t.Fatalf("unexpected redirect target %q", loc)
		}
	})
}
