package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lucci-xyz/pilot/internal/middleware"
	"github.com/lucci-xyz/pilot/internal/service"
)

// Form actions return 303 redirects on success so browser posts land on the
// app shell; validation failures redirect back with an error query param.

const (
	appPath    = "/app"
	loginPath  = "/login"
	signupPath = "/signup"
)

// --- Signup ---

type SignupHandler struct {
	svc          *service.AuthService
	cookieSecure bool
}

func NewSignupHandler(svc *service.AuthService, cookieSecure bool) *SignupHandler {
	return &SignupHandler{svc: svc, cookieSecure: cookieSecure}
}

func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, signupPath, "invalid_form")
		return
	}

	firstName := strings.TrimSpace(r.PostFormValue("firstName"))
	lastName := strings.TrimSpace(r.PostFormValue("lastName"))
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	name := strings.TrimSpace(firstName + " " + lastName)
	if name == "" || email == "" || password == "" {
		redirectWithError(w, r, signupPath, "missing_fields")
		return
	}

	user, err := h.svc.Register(r.Context(), email, password, name)
	if err != nil {
		redirectWithError(w, r, signupPath, errorCode(err))
		return
	}

	session, err := h.svc.CreateSession(r.Context(), user.ID)
	if err != nil {
		redirectWithError(w, r, loginPath, errorCode(err))
		return
	}

	setSessionCookie(w, session.Token, session.ExpiresAt, h.cookieSecure)
	http.Redirect(w, r, appPath, http.StatusSeeOther)
}

// --- Login ---

type LoginHandler struct {
	svc          *service.AuthService
	limiter      *middleware.AuthAttemptLimiter
	cookieSecure bool
}

func NewLoginHandler(svc *service.AuthService, limiter *middleware.AuthAttemptLimiter, cookieSecure bool) *LoginHandler {
	return &LoginHandler{svc: svc, limiter: limiter, cookieSecure: cookieSecure}
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, loginPath, "invalid_form")
		return
	}

	limiterKey := middleware.ClientIPKey(r, "login")
	if !h.limiter.Allow(limiterKey) {
		log.Warn().Str("key", limiterKey).Msg("login attempts blocked")
		redirectWithError(w, r, loginPath, "too_many_attempts")
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, err := h.svc.Authenticate(r.Context(), email, password)
	if err != nil {
		h.limiter.RegisterFailure(limiterKey)
		redirectWithError(w, r, loginPath, errorCode(err))
		return
	}
	h.limiter.RegisterSuccess(limiterKey)

	session, err := h.svc.CreateSession(r.Context(), user.ID)
	if err != nil {
		redirectWithError(w, r, loginPath, errorCode(err))
		return
	}

	setSessionCookie(w, session.Token, session.ExpiresAt, h.cookieSecure)
	http.Redirect(w, r, appPath, http.StatusSeeOther)
}

// --- Logout ---

type LogoutHandler struct {
	svc          *service.AuthService
	cookieSecure bool
}

func NewLogoutHandler(svc *service.AuthService, cookieSecure bool) *LogoutHandler {
	return &LogoutHandler{svc: svc, cookieSecure: cookieSecure}
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.svc.DeleteSession(r.Context(), cookie.Value); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	clearSessionCookie(w, h.cookieSecure)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// --- Me ---

type MeHandler struct{}

func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		RespondError(w, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}
	RespondJSON(w, http.StatusOK, user)
}

// --- Helpers ---

func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func redirectWithError(w http.ResponseWriter, r *http.Request, path, code string) {
	http.Redirect(w, r, path+"?error="+code, http.StatusSeeOther)
}

func errorCode(err error) string {
	if svcErr, ok := err.(*service.Error); ok {
		return svcErr.Code
	}
	return "internal_error"
}
