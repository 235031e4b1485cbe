package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_Overlay(t *testing.T) {
	t.Setenv(EnvPrefix+"DB_BACKEND", "postgres")
	t.Setenv(EnvPrefix+"DB_DSN", "postgres://u:p@db/app")
	t.Setenv(EnvPrefix+"SESSION_TTL", "24h")
	t.Setenv(EnvPrefix+"REGISTRATION_OPEN", "false")
	t.Setenv(EnvPrefix+"LOGIN_RATE_LIMIT", "3")
	t.Setenv(EnvPrefix+"TRUSTED_PROXIES", "10.0.0.0/8, ,192.168.1.1")

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseEnv(&c, ""))

	assert.Equal(t, "postgres", c.DatabaseBackend)
	assert.Equal(t, "postgres://u:p@db/app", c.DatabaseDSN)
	assert.Equal(t, 24*time.Hour, c.SessionTTL)
	assert.False(t, c.RegistrationOpen)
	assert.Equal(t, 3, c.LoginRateLimit)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, c.TrustedProxies)
}

func TestParseEnv_BadValues(t *testing.T) {
	t.Setenv(EnvPrefix+"SESSION_TTL", "forever")
	t.Setenv(EnvPrefix+"REGISTRATION_OPEN", "maybe")
	t.Setenv(EnvPrefix+"LOGIN_RATE_LIMIT", "lots")

	var c Config
	c.LoadDefaults()
	err := parseEnv(&c, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL")
	assert.Contains(t, err.Error(), "REGISTRATION_OPEN")
	assert.Contains(t, err.Error(), "LOGIN_RATE_LIMIT")
}

func TestParseEnv_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PHOTOCAPTION_TEST_DOTENV_TIER=Unlimited\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PHOTOCAPTION_TEST_DOTENV_TIER") })

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseEnv(&c, path))
	assert.Equal(t, "Unlimited", os.Getenv("PHOTOCAPTION_TEST_DOTENV_TIER"))

	// a missing file is not an error
	require.NoError(t, parseEnv(&c, filepath.Join(dir, "absent.env")))
}
