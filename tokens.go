package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Default expiry windows for single-use tokens
const (
	ResetTokenExpiry        = 10 * time.Minute
	VerificationTokenExpiry = 24 * time.Hour
)

// ResetToken is a single-use password recovery credential. At most one unused
// token is valid per account at a time; issuing a new one invalidates the rest.
type ResetToken struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

// IsExpired checks if the token's expiry has passed
func (t *ResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid checks if the token can still be consumed (not used, not expired)
func (t *ResetToken) IsValid() bool {
	return !t.Used && !t.IsExpired()
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
