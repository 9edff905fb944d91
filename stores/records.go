package stores

import (
	"time"

	"github.com/projecthuman/auth"
)

// accountRecord is the on-disk shape of an account. The account type hides
// credential fields from JSON responses, so persistence needs its own record.
type accountRecord struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"password_hash,omitempty"`
	IsActive          bool      `json:"is_active"`
	IsVerified        bool      `json:"is_verified"`
	VerificationToken string    `json:"verification_token,omitempty"`
	Provider          string    `json:"provider,omitempty"`
	ProviderID        string    `json:"provider_id,omitempty"`
	Picture           string    `json:"picture,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func newAccountRecord(a *auth.Account) *accountRecord {
	return &accountRecord{
		ID:                a.ID,
		Username:          a.Username,
		Email:             a.Email,
		PasswordHash:      a.PasswordHash,
		IsActive:          a.IsActive,
		IsVerified:        a.IsVerified,
		VerificationToken: a.VerificationToken,
		Provider:          a.Provider,
		ProviderID:        a.ProviderID,
		Picture:           a.Picture,
		CreatedAt:         a.CreatedAt,
	}
}

func (r *accountRecord) toAccount() *auth.Account {
	return &auth.Account{
		ID:                r.ID,
		Username:          r.Username,
		Email:             r.Email,
		PasswordHash:      r.PasswordHash,
		IsActive:          r.IsActive,
		IsVerified:        r.IsVerified,
		VerificationToken: r.VerificationToken,
		Provider:          r.Provider,
		ProviderID:        r.ProviderID,
		Picture:           r.Picture,
		CreatedAt:         r.CreatedAt,
	}
}

type resetTokenRecord struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

func newResetTokenRecord(t *auth.ResetToken) *resetTokenRecord {
	return &resetTokenRecord{
		ID:        t.ID,
		AccountID: t.AccountID,
		Token:     t.Token,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
		Used:      t.Used,
	}
}

func (r *resetTokenRecord) toResetToken() *auth.ResetToken {
	return &auth.ResetToken{
		ID:        r.ID,
		AccountID: r.AccountID,
		Token:     r.Token,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
		Used:      r.Used,
	}
}
