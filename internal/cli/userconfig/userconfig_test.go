package userconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PORTAL_SERVER", "")
	t.Setenv("PORTAL_STORE", "")
	return home
}

func TestLoad_MissingFile(t *testing.T) {
	setupHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerURL != "" || cfg.Store != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestSetServer_Persists(t *testing.T) {
	home := setupHome(t)

	if err := SetServer("https://portal.example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(home, ".config", "portal", "config.json")); err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerURL != "https://portal.example.com" {
		t.Errorf("expected server URL to be saved, got %s", cfg.ServerURL)
	}
}

func TestSetServer_RejectsInvalidURL(t *testing.T) {
	setupHome(t)

	for _, bad := range []string{"", "portal.example.com", "ftp://portal.example.com", "http://"} {
		if err := SetServer(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestSetStore(t *testing.T) {
	setupHome(t)

	if err := SetStore("file"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, _ := Load()
	if cfg.Store != "file" {
		t.Errorf("expected store file, got %s", cfg.Store)
	}

	if err := SetStore("vault"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestEffective_Precedence(t *testing.T) {
	setupHome(t)
	t.Chdir(t.TempDir())

	cfg, err := Effective()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerURL != DefaultServerURL || cfg.Store != DefaultStore {
		t.Errorf("expected defaults, got %+v", cfg)
	}

	if err := SetServer("https://file.example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, _ = Effective()
	if cfg.ServerURL != "https://file.example.com" {
		t.Errorf("expected file value, got %s", cfg.ServerURL)
	}

	t.Setenv("PORTAL_SERVER", "https://env.example.com")
	t.Setenv("PORTAL_STORE", "file")
	cfg, _ = Effective()
	if cfg.ServerURL != "https://env.example.com" {
		t.Errorf("expected env value, got %s", cfg.ServerURL)
	}
	if cfg.Store != "file" {
		t.Errorf("expected env store, got %s", cfg.Store)
	}
}
