package auth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const stateDirName = "portal"

// FileStore keeps each key in its own file under a per-server directory.
// Used where no keyring daemon is available (CI, containers).
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at ~/.local/state/portal/<server>
func NewFileStore(serverURL string) (*FileStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".local", "state", stateDirName, serverDirName(serverURL))
	return NewFileStoreAt(dir), nil
}

// NewFileStoreAt returns a store rooted at dir
func NewFileStoreAt(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// serverDirName turns a server URL into a filesystem-safe directory name
func serverDirName(serverURL string) string {
	if serverURL == "" {
		return "default"
	}
	name := serverURL
	if u, err := url.Parse(serverURL); err == nil && u.Host != "" {
		name = u.Host
	}
	return strings.NewReplacer(":", "_", "/", "_").Replace(name)
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get reads the file for key. Missing files return ErrNotFound.
func (f *FileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set writes the file for key atomically
func (f *FileStore) Set(key string, value []byte) error {
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Delete removes the file for key
func (f *FileStore) Delete(key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
