// package services defines the catalog query layer
package services

import (
	"context"

	"github.com/desertthunder/soundbridge/internal/models"
)

// TokenSource resolves bearer tokens per session. An empty session key asks for the app-level token.
//
// [auth.Manager] implements it.
type TokenSource interface {
	AccessToken(ctx context.Context, sessionKey string) (string, error)
}

// SearchResults holds one page per searched category. Categories that were not searched are empty pages.
type SearchResults struct {
	Tracks    models.Page[models.Item] `json:"tracks"`
	Artists   models.Page[models.Item] `json:"artists"`
	Albums    models.Page[models.Item] `json:"albums"`
	Playlists models.Page[models.Item] `json:"playlists"`
}

// Category is a browse category.
type Category struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	IconURL *string `json:"icon_url"`
}

// UserProfile is the signed-in user's account.
type UserProfile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Country     string  `json:"country"`
	Product     string  `json:"product"`
	Followers   int     `json:"followers"`
	ImageURL    *string `json:"image_url"`
}
