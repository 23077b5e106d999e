package models

import "time"

// RefreshMargin is how long before expiry a stored access token stops being handed out.
const RefreshMargin = 60 * time.Second

// Credential is one session's OAuth state with the identity provider.
//
// ExpiresAt is epoch milliseconds and is the only source of truth for validity.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Scope        string `json:"scope,omitempty"`
}

// Expiry returns ExpiresAt as a [time.Time].
func (c *Credential) Expiry() time.Time {
	return time.UnixMilli(c.ExpiresAt)
}

// Usable reports whether the access token is still valid at now plus [RefreshMargin].
func (c *Credential) Usable(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return c.ExpiresAt-now.UnixMilli() > RefreshMargin.Milliseconds()
}

// ExpiresAtFrom converts a token lifetime in seconds into an epoch-millisecond expiry.
func ExpiresAtFrom(now time.Time, expiresIn time.Duration) int64 {
	return now.Add(expiresIn).UnixMilli()
}
