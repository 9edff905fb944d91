//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	"github.com/projecthuman/auth"
)

// AccountModel is the GORM model for accounts
type AccountModel struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	Username          string    `gorm:"size:80;uniqueIndex"`
	Email             string    `gorm:"size:255;uniqueIndex"`
	PasswordHash      string    `gorm:"size:128"`
	IsActive          bool      `gorm:"default:true"`
	IsVerified        bool      `gorm:"default:false"`
	VerificationToken string    `gorm:"size:128;index"`
	Provider          string    `gorm:"size:32;index:idx_provider_identity"`
	ProviderID        string    `gorm:"size:255;index:idx_provider_identity"`
	Picture           string    `gorm:"size:512"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount() *auth.Account {
	return &auth.Account{
		ID:                m.ID,
		Username:          m.Username,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		IsActive:          m.IsActive,
		IsVerified:        m.IsVerified,
		VerificationToken: m.VerificationToken,
		Provider:          m.Provider,
		ProviderID:        m.ProviderID,
		Picture:           m.Picture,
		CreatedAt:         m.CreatedAt,
	}
}

func AccountToModel(a *auth.Account) *AccountModel {
	return &AccountModel{
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

// ResetTokenModel is the GORM model for password reset tokens
type ResetTokenModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	AccountID int64     `gorm:"index"`
	Token     string    `gorm:"size:128;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
	Used      bool      `gorm:"default:false"`
}

func (ResetTokenModel) TableName() string {
	return "reset_tokens"
}

func (m *ResetTokenModel) ToResetToken() *auth.ResetToken {
	return &auth.ResetToken{
		ID:        m.ID,
		AccountID: m.AccountID,
		Token:     m.Token,
		CreatedAt: m.CreatedAt,
		ExpiresAt: m.ExpiresAt,
		Used:      m.Used,
	}
}

func ResetTokenToModel(t *auth.ResetToken) *ResetTokenModel {
	return &ResetTokenModel{
		ID:        t.ID,
		AccountID: t.AccountID,
		Token:     t.Token,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
		Used:      t.Used,
	}
}
