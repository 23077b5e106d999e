package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/soundbridge/internal/cache"
	"github.com/desertthunder/soundbridge/internal/models"
)

// CredentialStore persists one [models.Credential] per session key.
//
// Implementations must be safe for concurrent use. Set replaces the whole record.
type CredentialStore interface {
	// Get returns the record for key, or nil and no error when none exists.
	Get(ctx context.Context, key string) (*models.Credential, error)

	// Set stores cred under key. The record itself expires after ttl when ttl > 0.
	Set(ctx context.Context, key string, cred *models.Credential, ttl time.Duration) error

	// Delete removes the record for key. Deleting an absent record is not an error.
	Delete(ctx context.Context, key string) error
}

const sessionOp = "session"

// KVStore implements [CredentialStore] on a cache [cache.Backend], so credentials can live in Redis or bbolt.
type KVStore struct {
	backend cache.Backend
}

// NewKVStore creates a KVStore writing to backend.
func NewKVStore(backend cache.Backend) *KVStore {
	return &KVStore{backend: backend}
}

func sessionKey(key string) string {
	return cache.Key(sessionOp, "id", key)
}

func (s *KVStore) Get(ctx context.Context, key string) (*models.Credential, error) {
	raw, ok, err := s.backend.Get(ctx, sessionKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var cred models.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	return &cred, nil
}

func (s *KVStore) Set(ctx context.Context, key string, cred *models.Credential, ttl time.Duration) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := s.backend.Set(ctx, sessionKey(key), string(data), ttl); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, sessionKey(key)); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
