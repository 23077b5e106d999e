package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/shared"
)

// DownloadRepository implements [models.Repository] for [models.Download] persistence.
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new [DownloadRepository] with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

var _ models.Repository[*models.Download] = (*DownloadRepository)(nil)

const downloadColumns = `id, track_id, path, source_url, title, uploader, duration_seconds, created_at`

// Create inserts a new download, generating an ID when none is set.
//
// A second download for the same track fails with a wrapped [shared.ErrInvalidInput].
func (r *DownloadRepository) Create(ctx context.Context, d *models.Download) error {
	if d.ID == "" {
		d.ID = shared.GenerateID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	if err := d.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO downloads (` + downloadColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.TrackID, d.Path, d.SourceURL, d.Title, d.Uploader, d.DurationSeconds, d.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: track %s already downloaded", shared.ErrInvalidInput, d.TrackID)
		}
		return fmt.Errorf("failed to insert download: %w", err)
	}

	return nil
}

// Record stores d, replacing any earlier download of the same track.
func (r *DownloadRepository) Record(ctx context.Context, d *models.Download) error {
	if d.ID == "" {
		d.ID = shared.GenerateID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	if err := d.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO downloads (` + downloadColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			path = excluded.path,
			source_url = excluded.source_url,
			title = excluded.title,
			uploader = excluded.uploader,
			duration_seconds = excluded.duration_seconds,
			created_at = excluded.created_at
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.TrackID, d.Path, d.SourceURL, d.Title, d.Uploader, d.DurationSeconds, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}

	return nil
}

// Get retrieves a download by ID.
func (r *DownloadRepository) Get(ctx context.Context, id string) (*models.Download, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+downloadColumns+` FROM downloads WHERE id = ?`, id)
	d, err := scanDownload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("download", id)
	}
	return d, err
}

// GetByTrackID retrieves the download recorded for a catalog track.
func (r *DownloadRepository) GetByTrackID(ctx context.Context, trackID string) (*models.Download, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+downloadColumns+` FROM downloads WHERE track_id = ?`, trackID)
	d, err := scanDownload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("download for track", trackID)
	}
	return d, err
}

// Delete removes a download by ID. The file on disk is left alone.
func (r *DownloadRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM downloads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound("download", id)
	}

	return nil
}

// List returns every download, newest first.
func (r *DownloadRepository) List(ctx context.Context) ([]*models.Download, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+downloadColumns+` FROM downloads ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*models.Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating downloads: %w", err)
	}

	return downloads, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownload(row rowScanner) (*models.Download, error) {
	var d models.Download
	err := row.Scan(&d.ID, &d.TrackID, &d.Path, &d.SourceURL, &d.Title, &d.Uploader, &d.DurationSeconds, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}
	return &d, nil
}
