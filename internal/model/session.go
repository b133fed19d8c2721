package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is a cookie-backed login session. The token is the cookie value;
// multiple concurrent sessions per user are allowed.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"-"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
