package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the device-local durable key/value storage consumed by the
// synchronization engine. Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}

// FileStore persists all keys into a single JSON file. It stands in for
// the browser's localStorage on kiosk/device deployments: small, always
// available, synchronous.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// NewFileStore opens (or creates) the store file at path
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("failed to open store file: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fs.data); err != nil {
			return nil, fmt.Errorf("failed to parse store file: %w", err)
		}
	}
	return fs, nil
}

func (fs *FileStore) Get(key string) ([]byte, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	value, exists := fs.data[key]
	if !exists {
		return nil, false
	}
	return value, true
}

func (fs *FileStore) Set(key string, value []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.data[key] = json.RawMessage(value)
	return fs.flush()
}

// flush writes the full map atomically via a temp file rename.
// Caller must hold fs.mu.
func (fs *FileStore) flush() error {
	raw, err := json.Marshal(fs.data)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (ms *MemStore) Get(key string) ([]byte, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	value, exists := ms.data[key]
	if !exists {
		return nil, false
	}
	return append([]byte(nil), value...), true
}

func (ms *MemStore) Set(key string, value []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.data[key] = append([]byte(nil), value...)
	return nil
}
