package sdk

import "time"

// Credentials represents a stored login.
type Credentials struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// IsExpired reports whether the stored token no longer passes validation.
func (c *Credentials) IsExpired() bool {
	return !ValidateToken(c.AccessToken).Valid
}

// CredentialStore persists credentials between CLI invocations.
type CredentialStore interface {
	SaveCredentials(credentials *Credentials) error
	LoadCredentials() (*Credentials, error)
	DeleteCredentials() error
}
