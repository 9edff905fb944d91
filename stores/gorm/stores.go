//go:build !wasm
// +build !wasm

// Package gorm provides database-backed implementations of the account and
// reset token stores.
package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/projecthuman/auth"
)

// AutoMigrate runs database migrations for all auth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountModel{},
		&ResetTokenModel{},
	)
}

// AccountStore implements auth.AccountStore using GORM
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) CreateAccount(account *auth.Account) error {
	account.Email = auth.NormalizeEmail(account.Email)

	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&AccountModel{}).Where("email = ?", account.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return auth.ErrEmailExists
		}
		if err := tx.Model(&AccountModel{}).Where("LOWER(username) = LOWER(?)", account.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return auth.ErrUsernameTaken
		}

		model := AccountToModel(account)
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		account.ID = model.ID
		account.CreatedAt = model.CreatedAt
		return nil
	})
}

func (s *AccountStore) GetAccountByID(id int64) (*auth.Account, error) {
	var model AccountModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundAs(err, auth.ErrAccountNotFound)
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetAccountByEmail(email string) (*auth.Account, error) {
	var model AccountModel
	if err := s.db.First(&model, "email = ?", auth.NormalizeEmail(email)).Error; err != nil {
		return nil, notFoundAs(err, auth.ErrAccountNotFound)
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetAccountByUsername(username string) (*auth.Account, error) {
	var model AccountModel
	if err := s.db.First(&model, "LOWER(username) = LOWER(?)", username).Error; err != nil {
		return nil, notFoundAs(err, auth.ErrAccountNotFound)
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetAccountByProvider(provider, providerID string) (*auth.Account, error) {
	var model AccountModel
	if err := s.db.First(&model, "provider = ? AND provider_id = ?", provider, providerID).Error; err != nil {
		return nil, notFoundAs(err, auth.ErrAccountNotFound)
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetAccountByVerificationToken(token string) (*auth.Account, error) {
	if token == "" {
		return nil, auth.ErrAccountNotFound
	}
	var model AccountModel
	if err := s.db.First(&model, "verification_token = ?", token).Error; err != nil {
		return nil, notFoundAs(err, auth.ErrAccountNotFound)
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) SaveAccount(account *auth.Account) error {
	if account.ID == 0 {
		return auth.ErrAccountNotFound
	}
	return s.db.Save(AccountToModel(account)).Error
}

// ResetTokenStore implements auth.ResetTokenStore using GORM
type ResetTokenStore struct {
	db *gorm.DB
}

func NewResetTokenStore(db *gorm.DB) *ResetTokenStore {
	return &ResetTokenStore{db: db}
}

func (s *ResetTokenStore) IssueResetToken(accountID int64, ttl time.Duration) (*auth.ResetToken, error) {
	value, err := auth.GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	model := &ResetTokenModel{
		AccountID: accountID,
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ? AND used = ?", accountID, false).Delete(&ResetTokenModel{}).Error; err != nil {
			return err
		}
		return tx.Create(model).Error
	})
	if err != nil {
		return nil, err
	}
	return model.ToResetToken(), nil
}

func (s *ResetTokenStore) GetResetToken(token string) (*auth.ResetToken, error) {
	var model ResetTokenModel
	if err := s.db.First(&model, "token = ?", token).Error; err != nil {
		return nil, notFoundAs(err, auth.ErrTokenNotFound)
	}
	return model.ToResetToken(), nil
}

func (s *ResetTokenStore) ConsumeResetToken(token string, passwordHash string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// The guarded update is the single-use gate: a token row only flips
		// once, so a concurrent replay updates zero rows and fails here.
		res := tx.Model(&ResetTokenModel{}).
			Where("token = ? AND used = ?", token, false).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return auth.ErrTokenNotFound
		}

		var model ResetTokenModel
		if err := tx.First(&model, "token = ?", token).Error; err != nil {
			return err
		}
		return tx.Model(&AccountModel{}).
			Where("id = ?", model.AccountID).
			Update("password_hash", passwordHash).Error
	})
}

func (s *ResetTokenStore) PurgeExpiredTokens() error {
	return s.db.Where("expires_at < ?", time.Now()).Delete(&ResetTokenModel{}).Error
}

func notFoundAs(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
