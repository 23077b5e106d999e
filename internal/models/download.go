package models

import (
	"errors"
	"time"
)

// Download records a media file fetched for a catalog track.
type Download struct {
	ID              string    `json:"id"`
	TrackID         string    `json:"track_id"`
	Path            string    `json:"path"`
	SourceURL       string    `json:"source_url"`
	Title           string    `json:"title"`
	Uploader        string    `json:"uploader"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

func (d *Download) GetID() string           { return d.ID }
func (d *Download) GetCreatedAt() time.Time { return d.CreatedAt }

// Validate checks the fields the downloads table requires.
func (d *Download) Validate() error {
	switch {
	case d.ID == "":
		return errors.New("download id is required")
	case d.TrackID == "":
		return errors.New("download track_id is required")
	case d.Path == "":
		return errors.New("download path is required")
	}
	return nil
}
