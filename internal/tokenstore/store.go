// Package tokenstore persists the aggregator access token between sessions.
// The store is an injected port so tests and callers can substitute an
// in-memory implementation.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNoToken indicates that no access token has been saved yet.
var ErrNoToken = errors.New("no access token saved")

// Connection is the durable credential for one linked bank connection.
type Connection struct {
	LinkedAt    time.Time `json:"linked_at"`
	AccessToken string    `json:"access_token"`
	ItemID      string    `json:"item_id"`
}

// Store defines the contract for access-token persistence.
type Store interface {
	Save(conn Connection) error
	Load() (*Connection, error)
	Clear() error
}

// FileStore persists the connection as a JSON file with owner-only
// permissions.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the connection to disk.
func (s *FileStore) Save(conn Connection) error {
	if conn.AccessToken == "" {
		return fmt.Errorf("access token cannot be empty")
	}
	if conn.LinkedAt.IsZero() {
		conn.LinkedAt = time.Now()
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(conn, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Load reads the saved connection, or ErrNoToken when none exists.
func (s *FileStore) Load() (*Connection, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var conn Connection
	if err := json.Unmarshal(data, &conn); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if conn.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &conn, nil
}

// Clear removes the saved connection. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	conn *Connection
	mu   sync.Mutex
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Save implements Store.
func (s *MemStore) Save(conn Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = &conn
	return nil
}

// Load implements Store.
func (s *MemStore) Load() (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNoToken
	}
	conn := *s.conn
	return &conn, nil
}

// Clear implements Store.
func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = nil
	return nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemStore)(nil)
)
