package models

import "time"

// Credential is the short-lived access token obtained from the long-lived
// refresh token. A new exchange invalidates the previous token.
type Credential struct {
	AccessToken string
	IssuedAt    time.Time
	TTL         time.Duration
}

// Valid reports whether the access token is still inside its validity window.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.IssuedAt.Add(c.TTL))
}
