package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/lucci-xyz/pilot/internal/middleware"
	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/store"
	"github.com/lucci-xyz/pilot/internal/validation"
)

const (
	apiKeyPrefix    = "pk_live_"
	apiKeyRandBytes = 24
	keyPrefixLength = 8
)

// APIKeyService handles API key issuance and verification.
type APIKeyService struct {
	store store.APIKeyStore
}

func NewAPIKeyService(s store.APIKeyStore) *APIKeyService {
	return &APIKeyService{store: s}
}

// CreateAPIKeyInput contains the parameters for creating a new API key.
type CreateAPIKeyInput struct {
	Name        string
	Permissions []string
	ExpiresAt   *time.Time
}

// CreateAPIKeyResult contains the output of a successful key creation. The
// plaintext key is returned exactly once and never retrievable afterwards.
type CreateAPIKeyResult struct {
	APIKey   *model.APIKey
	PlainKey string
}

// Create validates input, generates a new pk_live_ key, and persists its hash.
func (s *APIKeyService) Create(ctx context.Context, userID uuid.UUID, input CreateAPIKeyInput) (*CreateAPIKeyResult, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, NewBadRequest("invalid_request", "name is required")
	}
	permissions := input.Permissions
	if len(permissions) == 0 {
		permissions = []string{model.PermissionRead, model.PermissionWrite}
	}
	if err := validation.Permissions(permissions); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now().UTC()) {
		return nil, NewBadRequest("invalid_request", "expires_at must be in the future")
	}

	plainKey, err := generateAPIKey()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate API key")
		return nil, NewInternal("internal_error", "Failed to create API key")
	}

	apiKey := &model.APIKey{
		UserID:      userID,
		Name:        strings.TrimSpace(input.Name),
		KeyHash:     middleware.SHA256Hex(plainKey),
		KeyPrefix:   plainKey[:keyPrefixLength],
		Permissions: permissions,
		ExpiresAt:   input.ExpiresAt,
	}
	if err := s.store.CreateAPIKey(ctx, apiKey); err != nil {
		log.Error().Err(err).Msg("failed to create API key")
		return nil, NewInternal("internal_error", "Failed to create API key")
	}

	return &CreateAPIKeyResult{APIKey: apiKey, PlainKey: plainKey}, nil
}

// List returns all of a user's keys, newest first.
func (s *APIKeyService) List(ctx context.Context, userID uuid.UUID) ([]*model.APIKey, error) {
	keys, err := s.store.ListAPIKeysByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list API keys")
		return nil, NewInternal("internal_error", "Failed to list API keys")
	}
	return keys, nil
}

// Delete removes a key owned by the user.
func (s *APIKeyService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	deleted, err := s.store.DeleteAPIKey(ctx, id, userID)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to delete API key")
		return NewInternal("internal_error", "Failed to delete API key")
	}
	if !deleted {
		return NewNotFound("not_found", "API key not found")
	}
	return nil
}

// Verify resolves a plaintext key to its record. Success bumps the key's
// request count and last-used timestamp; every call counts as a use.
func (s *APIKeyService) Verify(ctx context.Context, plainKey string) (*model.APIKey, error) {
	apiKey, err := s.store.GetAPIKeyByHash(ctx, middleware.SHA256Hex(plainKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewUnauthorized("invalid_api_key", "Invalid API key")
		}
		log.Error().Err(err).Msg("failed to look up API key")
		return nil, NewInternal("internal_error", "Failed to verify API key")
	}

	if apiKey.Expired(time.Now().UTC()) {
		return nil, NewUnauthorized("invalid_api_key", "API key has expired")
	}

	now := time.Now().UTC()
	if err := s.store.TouchAPIKey(ctx, apiKey.ID, now); err != nil {
		log.Error().Err(err).Str("id", apiKey.ID.String()).Msg("failed to record API key use")
		return nil, NewInternal("internal_error", "Failed to verify API key")
	}
	apiKey.RequestCount++
	apiKey.LastUsedAt = &now

	return apiKey, nil
}

// MaskKeyPrefix renders the display form of a key: first 8 and last 4
// characters with the middle elided.
func MaskKeyPrefix(keyPrefix, plainKey string) string {
	if len(plainKey) >= keyPrefixLength+4 {
		return plainKey[:keyPrefixLength] + "..." + plainKey[len(plainKey)-4:]
	}
	return keyPrefix + "..."
}

func generateAPIKey() (string, error) {
	b := make([]byte, apiKeyRandBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand failed: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}
