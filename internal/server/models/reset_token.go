package models

import "time"

// ResetToken is the single outstanding password reset secret of an account.
// Only the SHA-256 hash of the secret is stored.
type ResetToken struct {
	ID        string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
