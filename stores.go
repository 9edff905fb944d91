package auth

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Account is a registered identity. An account always has a password
// credential, a federated identity, or both; OAuth-only accounts carry an
// empty PasswordHash.
type Account struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	IsActive          bool      `json:"is_active"`
	IsVerified        bool      `json:"is_verified"`
	VerificationToken string    `json:"-"`
	Provider          string    `json:"provider,omitempty"`
	ProviderID        string    `json:"-"`
	Picture           string    `json:"picture,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// SetPassword validates and hashes a new password onto the account.
func (a *Account) SetPassword(password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// CheckPassword reports whether password matches the stored hash. Accounts
// without a password credential (OAuth-only) never match.
func (a *Account) CheckPassword(password string) bool {
	if a.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// HasFederatedIdentity reports whether the account is linked to an external
// provider.
func (a *Account) HasFederatedIdentity() bool {
	return a.Provider != "" && a.ProviderID != ""
}

// HashPassword hashes a password with bcrypt at default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NormalizeEmail folds an email address for storage and lookups. Uniqueness
// is enforced on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountStore persists accounts.
//
// Lookups by email and username are case-insensitive. CreateAccount returns
// ErrEmailExists / ErrUsernameTaken when the normalized email or username is
// already registered, and lookups that find nothing return ErrAccountNotFound.
type AccountStore interface {
	// CreateAccount persists a new account and fills in its ID
	CreateAccount(account *Account) error

	// GetAccountByID retrieves an account by its numeric id
	GetAccountByID(id int64) (*Account, error)

	// GetAccountByEmail retrieves an account by normalized email
	GetAccountByEmail(email string) (*Account, error)

	// GetAccountByUsername retrieves an account by username, case-insensitively
	GetAccountByUsername(username string) (*Account, error)

	// GetAccountByProvider retrieves an account by its federated identity pair
	GetAccountByProvider(provider, providerID string) (*Account, error)

	// GetAccountByVerificationToken retrieves the account holding the given
	// pending email verification token
	GetAccountByVerificationToken(token string) (*Account, error)

	// SaveAccount updates an existing account
	SaveAccount(account *Account) error
}

// ResetTokenStore persists password reset tokens.
//
// IssueResetToken and ConsumeResetToken are each a single atomic unit: issuing
// deletes the account's unused tokens before inserting the replacement, and
// consuming marks the token used while setting the owning account's password
// hash, committing both or neither.
type ResetTokenStore interface {
	// IssueResetToken invalidates all unused tokens for the account and
	// creates one fresh token expiring after ttl
	IssueResetToken(accountID int64, ttl time.Duration) (*ResetToken, error)

	// GetResetToken retrieves a reset token by its token string
	GetResetToken(token string) (*ResetToken, error)

	// ConsumeResetToken marks the token used and stores the new password hash
	// on the owning account. Returns ErrTokenNotFound if the token is missing
	// or was already consumed.
	ConsumeResetToken(token string, passwordHash string) error

	// PurgeExpiredTokens removes all tokens whose expiry has passed,
	// regardless of consumed state. Idempotent.
	PurgeExpiredTokens() error
}
