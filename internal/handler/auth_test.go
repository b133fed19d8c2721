package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lucci-xyz/pilot/internal/middleware"
	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/service"
)

type authFakeStore struct {
	users    map[string]*model.User
	sessions map[string]*model.Session
}

func newAuthFakeStore() *authFakeStore {
	return &authFakeStore{
		users:    make(map[string]*model.User),
		sessions: make(map[string]*model.Session),
	}
}

func (s *authFakeStore) CreateUser(_ context.Context, user *model.User) error {
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	s.users[user.Email] = user
	return nil
}

func (s *authFakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (s *authFakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *authFakeStore) CreateSession(_ context.Context, session *model.Session) error {
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	s.sessions[session.Token] = session
	return nil
}

func (s *authFakeStore) GetSessionByToken(_ context.Context, token string) (*model.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return session, nil
}

func (s *authFakeStore) DeleteSessionByToken(_ context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

func newTestAuthService(store *authFakeStore) *service.AuthService {
	return service.NewAuthService(store, store, 30*24*time.Hour)
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSignupHandler(t *testing.T) {
	store := newAuthFakeStore()
	h := NewSignupHandler(newTestAuthService(store), false)

	t.Run("successful signup sets cookie and redirects", func(t *testing.T) {
		rr := postForm(t, h, "/signup", url.Values{
			"firstName": {"Ada"},
			"lastName":  {"Lovelace"},
			"email":     {"ada@example.com"},
			"password":  {"password123"},
		})

		if rr.Code != http.StatusSeeOther {
			t.Fatalf("unexpected status %d", rr.Code)
		}
		if loc := rr.Header().Get("Location"); loc != "/app" {
			t.Fatalf("unexpected redirect %q", loc)
		}

		cookie := sessionCookie(t, rr)
		if cookie == nil || cookie.Value == "" {
			t.Fatal("expected session cookie to be set")
		}
		if !cookie.HttpOnly {
			t.Fatal("expected HttpOnly session cookie")
		}
		if _, ok := store.users["ada@example.com"]; !ok {
			t.Fatal("expected user to be created")
		}
	})

	t.Run("missing fields redirect back with error", func(t *testing.T) {
		rr := postForm(t, h, "/signup", url.Values{"email": {"x@example.com"}})

		if rr.Code != http.StatusSeeOther {
			t.Fatalf("unexpected status %d", rr.Code)
		}
		if loc := rr.Header().Get("Location"); loc != "/signup?error=missing_fields" {
			t.Fatalf("unexpected redirect %q", loc)
		}
	})

	t.Run("short password redirects back with error", func(t *testing.T) {
		rr := postForm(t, h, "/signup", url.Values{
			"firstName": {"Bob"},
			"email":     {"bob@example.com"},
			"password":  {"short"},
		})

		if loc := rr.Header().Get("Location"); loc != "/signup?error=invalid_request" {
			t.Fatalf("unexpected redirect %q", loc)
		}
	})

	t.Run("duplicate email redirects back with error", func(t *testing.T) {
		rr := postForm(t, h, "/signup", url.Values{
			"firstName": {"Ada"},
			"email":     {"ada@example.com"},
			"password":  {"password123"},
		})

		if loc := rr.Header().Get("Location"); loc != "/signup?error=email_registered" {
			t.Fatalf("unexpected redirect %q", loc)
		}
	})
}

func TestLoginHandler(t *testing.T) {
	store := newAuthFakeStore()
	svc := newTestAuthService(store)
	if _, err := svc.Register(context.Background(), "demo@pilot.app", "password123", "Demo User"); err != nil {
		t.Fatalf("register: %v", err)
	}

	limiter := middleware.NewAuthAttemptLimiter(5, time.Minute, time.Minute)
	h := NewLoginHandler(svc, limiter, false)

	t.Run("valid credentials set cookie and redirect", func(t *testing.T) {
		rr := postForm(t, h, "/login", url.Values{
			"email":    {"demo@pilot.app"},
			"password": {"password123"},
		})

		if rr.Code != http.StatusSeeOther {
			t.Fatalf("unexpected status %d", rr.Code)
		}
		if loc := rr.Header().Get("Location"); loc != "/app" {
			t.Fatalf("unexpected redirect %q", loc)
		}

		cookie := sessionCookie(t, rr)
		if cookie == nil || cookie.Value == "" {
			t.Fatal("expected session cookie to be set")
		}
		if _, ok := store.sessions[cookie.Value]; !ok {
			t.Fatal("expected session row for cookie token")
		}
	})

	t.Run("wrong password redirects back with error", func(t *testing.T) {
		rr := postForm(t, h, "/login", url.Values{
			"email":    {"demo@pilot.app"},
			"password": {"wrong-password"},
		})

		if loc := rr.Header().Get("Location"); loc != "/login?error=invalid_credentials" {
			t.Fatalf("unexpected redirect %q", loc)
		}
	})

	t.Run("repeated failures get throttled", func(t *testing.T) {
		tight := middleware.NewAuthAttemptLimiter(2, time.Minute, time.Minute)
		throttled := NewLoginHandler(svc, tight, false)

		var last *httptest.ResponseRecorder
		for i := 0; i < 3; i++ {
			last = postForm(t, throttled, "/login", url.Values{
				"email":    {"demo@pilot.app"},
				"password": {"wrong-password"},
			})
		}

		if loc := last.Header().Get("Location"); loc != "/login?error=too_many_attempts" {
			t.Fatalf("unexpected redirect %q", loc)
		}
	})
}

func TestLogoutHandler(t *testing.T) {
	store := newAuthFakeStore()
	svc := newTestAuthService(store)

	user, err := svc.Register(context.Background(), "demo@pilot.app", "password123", "Demo User")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := svc.CreateSession(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	h := NewLogoutHandler(svc, false)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: session.Token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if _, ok := store.sessions[session.Token]; ok {
		t.Fatal("expected session to be deleted")
	}

	cookie := sessionCookie(t, rr)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatal("expected session cookie to be cleared")
	}
}

func TestMeHandler(t *testing.T) {
	h := NewMeHandler()

	t.Run("authenticated", func(t *testing.T) {
		user := &model.User{ID: uuid.New(), Email: "demo@pilot.app", Name: "Demo User"}
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req = req.WithContext(middleware.WithUser(req.Context(), user))
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "demo@pilot.app") {
			t.Fatalf("unexpected body %s", rr.Body.String())
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("unexpected status %d", rr.Code)
		}
	})
}
