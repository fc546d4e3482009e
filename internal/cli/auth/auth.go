package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "portal-cli"
)

// getKeyringKey scopes a storage key to the auth server it belongs to
func getKeyringKey(serverURL, key string) string {
	if serverURL == "" {
		return key
	}
	return fmt.Sprintf("%s@%s", key, serverURL)
}

// KeyringStore keeps values in the OS keychain/credential manager
type KeyringStore struct {
	serverURL string
}

// NewKeyringStore returns a keyring-backed store scoped to serverURL
func NewKeyringStore(serverURL string) *KeyringStore {
	return &KeyringStore{serverURL: serverURL}
}

// Get reads a value from the keyring. Missing keys return ErrNotFound.
func (k *KeyringStore) Get(key string) ([]byte, error) {
	value, err := keyring.Get(service, getKeyringKey(k.serverURL, key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return []byte(value), nil
}

// Set persists a value in the keyring
func (k *KeyringStore) Set(key string, value []byte) error {
	if err := keyring.Set(service, getKeyringKey(k.serverURL, key), string(value)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Delete removes a value from the keyring
func (k *KeyringStore) Delete(key string) error {
	if err := keyring.Delete(service, getKeyringKey(k.serverURL, key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
