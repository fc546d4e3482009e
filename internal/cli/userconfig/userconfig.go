package userconfig

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	configDirName  = "portal"
	configFileName = "config.json"

	// DefaultServerURL is the portal gateway used when nothing is configured
	DefaultServerURL = "http://localhost:5000"
	// DefaultStore is the session store backend used when nothing is configured
	DefaultStore = "keyring"
)

// UserConfig represents the user's local configuration stored in ~/.config/portal/config.json
type UserConfig struct {
	ServerURL string `json:"server_url,omitempty"`
	Store     string `json:"store,omitempty"` // "keyring" or "file"
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", configDirName)
	return filepath.Join(configDir, configFileName), nil
}

// Load reads the user configuration file
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config doesn't exist, return empty config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &UserConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Create config directory if it doesn't exist
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetServer validates serverURL, then updates and saves the config
func SetServer(serverURL string) error {
	if err := ValidateServerURL(serverURL); err != nil {
		return err
	}

	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.ServerURL = serverURL
	return Save(cfg)
}

// SetStore updates the session store backend and saves the config
func SetStore(backend string) error {
	if backend != "keyring" && backend != "file" {
		return fmt.Errorf("invalid store '%s', must be one of: keyring, file", backend)
	}

	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.Store = backend
	return Save(cfg)
}

// ValidateServerURL checks that serverURL is an absolute http(s) URL
func ValidateServerURL(serverURL string) error {
	u, err := url.Parse(serverURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL '%s', expected e.g. https://portal.example.com", serverURL)
	}
	return nil
}

// Effective returns the settings in force: PORTAL_SERVER and PORTAL_STORE
// (from the environment or a .env file) override the config file, and
// defaults fill whatever is left
func Effective() (*UserConfig, error) {
	// Load .env file (fails silently if it doesn't exist)
	_ = godotenv.Load(".env")

	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORTAL_SERVER"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("PORTAL_STORE"); v != "" {
		cfg.Store = v
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.Store == "" {
		cfg.Store = DefaultStore
	}

	return cfg, nil
}
