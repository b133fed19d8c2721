package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/lucci-xyz/pilot/internal/middleware"
	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/store"
)

const minPasswordLength = 8

// invalidCredentials is returned for both unknown-email and wrong-password
// logins so the two cases cannot be told apart.
func invalidCredentials() *Error {
	return NewUnauthorized("invalid_credentials", "Invalid email or password")
}

// AuthService handles registration, login, and session lifecycle.
type AuthService struct {
	users           store.UserStore
	sessions        store.SessionStore
	sessionDuration time.Duration
}

func NewAuthService(users store.UserStore, sessions store.SessionStore, sessionDuration time.Duration) *AuthService {
	return &AuthService{users: users, sessions: sessions, sessionDuration: sessionDuration}
}

// Register creates a user. Emails are stored lowercased and compared
// case-insensitively.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, NewBadRequest("invalid_request", "A valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, NewBadRequest("invalid_request", "Password must be at least 8 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, NewBadRequest("invalid_request", "Name is required")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, NewBadRequest("email_registered", "Email already registered")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		log.Error().Err(err).Msg("failed to check existing email")
		return nil, NewInternal("internal_error", "Failed to create account")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: middleware.SHA256Hex(password),
		Name:         strings.TrimSpace(name),
		Avatar:       avatarURL(name),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		log.Error().Err(err).Msg("failed to create user")
		return nil, NewInternal("internal_error", "Failed to create account")
	}
	return user, nil
}

// Authenticate checks a password against the stored hash.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invalidCredentials()
		}
		log.Error().Err(err).Msg("failed to look up user")
		return nil, NewInternal("internal_error", "Authentication failed")
	}

	if middleware.SHA256Hex(password) != user.PasswordHash {
		return nil, invalidCredentials()
	}
	return user, nil
}

// CreateSession issues a new session token for the user.
func (s *AuthService) CreateSession(ctx context.Context, userID uuid.UUID) (*model.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session token")
		return nil, NewInternal("internal_error", "Failed to create session")
	}

	session := &model.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.sessionDuration),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		log.Error().Err(err).Msg("failed to create session")
		return nil, NewInternal("internal_error", "Failed to create session")
	}
	return session, nil
}

// GetSessionUser resolves a session token to its user. Expired sessions are
// deleted on discovery and treated as absent.
func (s *AuthService) GetSessionUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, pgx.ErrNoRows
	}

	session, err := s.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.Expired(time.Now().UTC()) {
		if err := s.sessions.DeleteSessionByToken(ctx, token); err != nil {
			log.Error().Err(err).Msg("failed to delete expired session")
		}
		return nil, pgx.ErrNoRows
	}

	return s.users.GetUserByID(ctx, session.UserID)
}

// DeleteSession logs out the session identified by token.
func (s *AuthService) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSessionByToken(ctx, token); err != nil {
		log.Error().Err(err).Msg("failed to delete session")
		return NewInternal("internal_error", "Failed to log out")
	}
	return nil
}

func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand failed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func avatarURL(name string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(strings.TrimSpace(name))
}
