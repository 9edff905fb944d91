package stores

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/projecthuman/auth"
)

// FSResetTokenStore stores password reset tokens as JSON files keyed by the
// token string. Consuming a token also rewrites the owning account, so the
// store holds a reference to the account store and serializes both updates
// under its own lock.
type FSResetTokenStore struct {
	StoragePath string

	accounts *FSAccountStore
	mu       sync.Mutex
}

func NewFSResetTokenStore(storagePath string, accounts *FSAccountStore) *FSResetTokenStore {
	return &FSResetTokenStore{StoragePath: storagePath, accounts: accounts}
}

func (s *FSResetTokenStore) tokensDir() string {
	return filepath.Join(s.StoragePath, "reset_tokens")
}

func (s *FSResetTokenStore) tokenPath(token string) string {
	return filepath.Join(s.tokensDir(), token+".json")
}

func (s *FSResetTokenStore) IssueResetToken(accountID int64, ttl time.Duration) (*auth.ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Any earlier unused tokens for this account stop working now
	entries, err := os.ReadDir(s.tokensDir())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.tokensDir(), entry.Name())
		existing, err := s.read(path)
		if err != nil {
			continue
		}
		if existing.AccountID == accountID && !existing.Used {
			os.Remove(path)
		}
	}

	value, err := auth.GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	token := &auth.ResetToken{
		AccountID: accountID,
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.write(token); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *FSResetTokenStore) GetResetToken(token string) (*auth.ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(s.tokenPath(token))
}

func (s *FSResetTokenStore) ConsumeResetToken(token string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.read(s.tokenPath(token))
	if err != nil {
		return err
	}
	if record.Used {
		return auth.ErrTokenNotFound
	}

	s.accounts.mu.Lock()
	defer s.accounts.mu.Unlock()
	account, err := s.accounts.getByIDLocked(record.AccountID)
	if err != nil {
		return err
	}

	record.Used = true
	if err := s.write(record); err != nil {
		return err
	}
	account.PasswordHash = passwordHash
	return s.accounts.saveLocked(account)
}

func (s *FSResetTokenStore) PurgeExpiredTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.tokensDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.tokensDir(), entry.Name())
		token, err := s.read(path)
		if err != nil {
			continue
		}
		if token.IsExpired() {
			os.Remove(path)
		}
	}
	return nil
}

func (s *FSResetTokenStore) read(path string) (*auth.ResetToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, err
	}
	var record resetTokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record.toResetToken(), nil
}

func (s *FSResetTokenStore) write(token *auth.ResetToken) error {
	path := s.tokenPath(token.Token)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(newResetTokenRecord(token), "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}
