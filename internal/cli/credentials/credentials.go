// Package credentials persists the client's bearer token and cached user
// snapshot. Both values are always written or removed together.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/unigest/unigest/internal/models"
)

// Well-known names of the two persisted values
const (
	AuthTokenKey = "authToken"
	UserDataKey  = "userData"
)

const service = "unigest-cli"

// Record is the persisted credential pair
type Record struct {
	AuthToken string `json:"authToken"`
	UserData  string `json:"userData"`
}

// NewRecord serializes user next to token
func NewRecord(token string, user models.UserProfile) (Record, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return Record{}, fmt.Errorf("failed to serialize user: %w", err)
	}
	return Record{AuthToken: token, UserData: string(data)}, nil
}

// Empty reports whether no token is held
func (r Record) Empty() bool {
	return r.AuthToken == ""
}

// User decodes the cached user snapshot
func (r Record) User() (*models.UserProfile, error) {
	if r.UserData == "" {
		return nil, nil
	}
	var user models.UserProfile
	if err := json.Unmarshal([]byte(r.UserData), &user); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return &user, nil
}

// Store defines the credential persistence operations.
// Load returns an empty Record and no error when nothing is stored.
type Store interface {
	Load() (Record, error)
	Save(rec Record) error
	Clear() error
}

// Token returns the stored bearer token, or "" when none is stored or the
// store cannot be read.
func Token(s Store) string {
	rec, err := s.Load()
	if err != nil {
		return ""
	}
	return rec.AuthToken
}

// KeyringStore keeps the record in the OS keychain/credential manager, one
// entry per API server.
type KeyringStore struct {
	account string
}

// NewKeyringStore returns a store scoped to apiURL
func NewKeyringStore(apiURL string) *KeyringStore {
	return &KeyringStore{account: fmt.Sprintf("session-%s", apiURL)}
}

// Load retrieves the record from the keyring
func (k *KeyringStore) Load() (Record, error) {
	secret, err := keyring.Get(service, k.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	fields := map[string]string{}
	if err := json.Unmarshal([]byte(secret), &fields); err != nil {
		return Record{}, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return Record{AuthToken: fields[AuthTokenKey], UserData: fields[UserDataKey]}, nil
}

// Save overwrites the whole record in a single keyring write
func (k *KeyringStore) Save(rec Record) error {
	secret, err := json.Marshal(map[string]string{
		AuthTokenKey: rec.AuthToken,
		UserDataKey:  rec.UserData,
	})
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := keyring.Set(service, k.account, string(secret)); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Clear removes the record; clearing an empty store is not an error
func (k *KeyringStore) Clear() error {
	if err := keyring.Delete(service, k.account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// MemoryStore keeps the record in process memory
type MemoryStore struct {
	mu  sync.RWMutex
	rec Record
}

// NewMemoryStore returns a store pre-filled with rec
func NewMemoryStore(rec Record) *MemoryStore {
	return &MemoryStore{rec: rec}
}

func (m *MemoryStore) Load() (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rec, nil
}

func (m *MemoryStore) Save(rec Record) error {
	m.mu.Lock()
	m.rec = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.rec = Record{}
	m.mu.Unlock()
	return nil
}
