package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/soundbridge/internal/models"
)

// CredentialRepository stores [models.Credential] rows keyed by session key.
//
// It satisfies auth.CredentialStore.
type CredentialRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db, now: time.Now}
}

// Get returns the record for key, or nil when none exists or the record itself has lapsed.
func (r *CredentialRepository) Get(ctx context.Context, key string) (*models.Credential, error) {
	query := `
		SELECT access_token, refresh_token, expires_at, scope, record_expires_at
		FROM credentials
		WHERE session_key = ?
	`

	var (
		cred          models.Credential
		recordExpires sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt, &cred.Scope, &recordExpires,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	if recordExpires.Valid && !r.now().Before(recordExpires.Time) {
		return nil, nil
	}

	return &cred, nil
}

// Set inserts or replaces the record for key in one statement.
func (r *CredentialRepository) Set(ctx context.Context, key string, cred *models.Credential, ttl time.Duration) error {
	if cred == nil {
		return fmt.Errorf("credential is required")
	}

	now := r.now().UTC()
	var recordExpires sql.NullTime
	if ttl > 0 {
		recordExpires = sql.NullTime{Time: now.Add(ttl), Valid: true}
	}

	query := `
		INSERT INTO credentials (session_key, access_token, refresh_token, expires_at, scope, record_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_key) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			record_expires_at = excluded.record_expires_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		key, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, cred.Scope, recordExpires, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Delete removes the record for key.
func (r *CredentialRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE session_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// PurgeExpired deletes every record whose own lifetime has passed and returns how many were removed.
func (r *CredentialRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE record_expires_at IS NOT NULL AND record_expires_at <= ?", r.now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge credentials: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
