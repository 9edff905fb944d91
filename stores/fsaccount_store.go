// Package stores provides file-backed implementations of the account and
// reset token stores. Each record is a JSON file under the storage path,
// written atomically. Suited to development and small single-node setups;
// production deployments use stores/gorm.
package stores

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/projecthuman/auth"
)

// FSAccountStore stores accounts as JSON files, one per account id.
type FSAccountStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSAccountStore(storagePath string) *FSAccountStore {
	return &FSAccountStore{StoragePath: storagePath}
}

func (s *FSAccountStore) accountsDir() string {
	return filepath.Join(s.StoragePath, "accounts")
}

func (s *FSAccountStore) accountPath(id int64) string {
	return filepath.Join(s.accountsDir(), strconv.FormatInt(id, 10)+".json")
}

func (s *FSAccountStore) CreateAccount(account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := auth.NormalizeEmail(account.Email)
	maxID := int64(0)
	entries, err := os.ReadDir(s.accountsDir())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		existing, err := s.read(filepath.Join(s.accountsDir(), entry.Name()))
		if err != nil {
			continue
		}
		if existing.ID > maxID {
			maxID = existing.ID
		}
		if existing.Email == email {
			return auth.ErrEmailExists
		}
		if strings.EqualFold(existing.Username, account.Username) {
			return auth.ErrUsernameTaken
		}
	}

	account.ID = maxID + 1
	account.Email = email
	return s.write(account)
}

func (s *FSAccountStore) GetAccountByID(id int64) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(s.accountPath(id))
}

func (s *FSAccountStore) GetAccountByEmail(email string) (*auth.Account, error) {
	email = auth.NormalizeEmail(email)
	return s.find(func(a *auth.Account) bool {
		return a.Email == email
	})
}

func (s *FSAccountStore) GetAccountByUsername(username string) (*auth.Account, error) {
	return s.find(func(a *auth.Account) bool {
		return strings.EqualFold(a.Username, username)
	})
}

func (s *FSAccountStore) GetAccountByProvider(provider, providerID string) (*auth.Account, error) {
	return s.find(func(a *auth.Account) bool {
		return a.Provider == provider && a.ProviderID == providerID
	})
}

func (s *FSAccountStore) GetAccountByVerificationToken(token string) (*auth.Account, error) {
	return s.find(func(a *auth.Account) bool {
		return a.VerificationToken != "" && a.VerificationToken == token
	})
}

func (s *FSAccountStore) SaveAccount(account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account.ID == 0 {
		return auth.ErrAccountNotFound
	}
	return s.write(account)
}

// saveLocked writes an account while the caller already holds the lock. Used
// by the reset token store to commit a password change and token consumption
// under one lock.
func (s *FSAccountStore) saveLocked(account *auth.Account) error {
	return s.write(account)
}

func (s *FSAccountStore) getByIDLocked(id int64) (*auth.Account, error) {
	return s.read(s.accountPath(id))
}

func (s *FSAccountStore) find(match func(*auth.Account) bool) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *auth.Account
	entries, err := os.ReadDir(s.accountsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		account, err := s.read(filepath.Join(s.accountsDir(), entry.Name()))
		if err != nil {
			continue
		}
		if match(account) {
			found = account
			break
		}
	}
	if found == nil {
		return nil, auth.ErrAccountNotFound
	}
	return found, nil
}

func (s *FSAccountStore) read(path string) (*auth.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	var record accountRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record.toAccount(), nil
}

func (s *FSAccountStore) write(account *auth.Account) error {
	path := s.accountPath(account.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(newAccountRecord(account), "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}
