package model

import (
	"time"

	"github.com/google/uuid"
)

// Permission tokens an API key may carry.
const (
	PermissionRead    = "read"
	PermissionWrite   = "write"
	PermissionExecute = "execute"
	PermissionWebhook = "webhook"
)

// APIKey is a machine-auth token. Only the SHA-256 hash of the plaintext is
// stored; KeyPrefix holds the first 8 characters for display.
type APIKey struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Name         string     `json:"name"`
	KeyHash      string     `json:"-"`
	KeyPrefix    string     `json:"key_prefix"`
	Permissions  []string   `json:"permissions"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	RequestCount int64      `json:"request_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// HasPermission reports whether the key carries the given permission token.
func (k *APIKey) HasPermission(perm string) bool {
	for _, p := range k.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
