package auth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Store when the key has never been written
var ErrNotFound = errors.New("not found")

// Store defines the interface for local credential storage.
// This allows us to mock the keyring in tests
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

// Open returns the store for the named backend
func Open(backend, serverURL string) (Store, error) {
	switch backend {
	case "", BackendKeyring:
		return NewKeyringStore(serverURL), nil
	case BackendFile:
		return NewFileStore(serverURL)
	default:
		return nil, fmt.Errorf("unknown store backend '%s', must be one of: keyring, file", backend)
	}
}
