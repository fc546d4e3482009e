package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"DATABASE_URL", "TOKEN_TTL", "SUSPEND_TIME", "INVALID_LOGIN_ATTEMPTS", "CORS_ORIGINS", "PORT", "TZ_NAME", "ADMIN_PASSWORD"} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "portal.sqlite", cfg.Database.URL)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, 300*time.Second, cfg.Auth.TokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 60*time.Second, cfg.Auth.SuspendTime)
	assert.Equal(t, 3, cfg.Auth.InvalidLoginAttempts)
	assert.Equal(t, time.UTC, cfg.Auth.Location)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Empty(t, cfg.Admin.Password)
	assert.Equal(t, []string{"http://localhost:5000"}, cfg.Server.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TOKEN_TTL", "60")
	t.Setenv("INVALID_LOGIN_ATTEMPTS", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("TZ_NAME", "America/New_York")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 5, cfg.Auth.InvalidLoginAttempts)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "America/New_York", cfg.Auth.Location.String())
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TOKEN_TTL", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "TOKEN_TTL")
}
