// Package secrets stores credentials by account name.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// DefaultFileName is the credentials file under the scrobbled config dir.
const DefaultFileName = "credentials.json"

// ErrNotFound is returned by Get when no value is stored for an account.
var ErrNotFound = errors.New("secrets: not found")

// Store is a key-value secret store addressed by account name.
type Store interface {
	// Get returns the value for account, or ErrNotFound.
	Get(account string) (string, error)
	// Set stores value under account, replacing any previous value.
	Set(value, account string) error
	// Delete removes account. Deleting an absent account is not an error.
	Delete(account string) error
}

// FileStore persists secrets as a JSON object in a single owner-only file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store at path. If path is empty, it uses
// $XDG_CONFIG_HOME/scrobbled/credentials.json.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		p, err := xdg.ConfigFile(filepath.Join("scrobbled", DefaultFileName))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve credentials path: %w", err)
		}
		path = p
	}
	return &FileStore{path: path}, nil
}

// Path returns the path to the credentials file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(account string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := values[account]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *FileStore) Set(value, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[account] = value
	return s.save(values)
}

func (s *FileStore) Delete(account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[account]; !ok {
		return nil
	}
	delete(values, account)

	if len(values) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete credentials file: %w", err)
		}
		return nil
	}
	return s.save(values)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	// Owner only.
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// MemoryStore keeps secrets in memory. Useful for tests and for running
// without persisted credentials.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(account string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[account]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(value, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[account] = value
	return nil
}

func (m *MemoryStore) Delete(account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, account)
	return nil
}
