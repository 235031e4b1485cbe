package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "sqlite", c.DatabaseBackend)
	assert.Equal(t, 15*time.Minute, c.LoginTokenTTL)
	assert.Equal(t, 7*24*time.Hour, c.SessionTTL)
	assert.Equal(t, 7*24*time.Hour, c.InviteTTL)
	assert.True(t, c.RegistrationOpen)
	assert.Equal(t, "Free", c.DefaultTier)
	assert.Equal(t, "UTC", c.Timezone)
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.DatabaseBackend = "oracle"
	c.SecretKey = ""
	c.SessionTTL = 0
	c.Timezone = "Mars/Olympus"

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database backend")
	assert.Contains(t, err.Error(), "secret key is required")
	assert.Contains(t, err.Error(), "lifetimes must be positive")
	assert.Contains(t, err.Error(), "Mars/Olympus")
}

func TestLocation(t *testing.T) {
	c := Config{Timezone: "Europe/Riga"}
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Riga", loc.String())
}

func TestLoad_Precedence(t *testing.T) {
	t.Setenv(EnvPrefix+"HTTP_ADDR", ":7000")
	t.Setenv(EnvPrefix+"DB_DSN", "env.db")
	t.Setenv(EnvPrefix+"DEFAULT_TIER", "Pro")

	path := writeTempJSON(t, "", "", map[string]any{
		"database_dsn": "json.db",
		"session_ttl":  "48h",
	})

	cfg, err := load([]string{"-c", path, "-d", "flag.db", "-t", "5"}, "")
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTPAddr, "env beats defaults")
	assert.Equal(t, "Pro", cfg.DefaultTier)
	assert.Equal(t, 48*time.Hour, cfg.SessionTTL, "json beats defaults")
	assert.Equal(t, "flag.db", cfg.DatabaseDSN, "flags beat json and env")
	assert.Equal(t, 5*time.Minute, cfg.LoginTokenTTL)
}

func TestLoad_InvalidFails(t *testing.T) {
	_, err := load([]string{"-b", "mysql"}, "")
	assert.ErrorContains(t, err, "unknown database backend")
}

func TestLoadFile(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{"database_dsn": "file-from-json.db", "timezone": "Europe/Riga"})

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file-from-json.db", cfg.DatabaseDSN)
	assert.Equal(t, "Europe/Riga", cfg.Timezone)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
