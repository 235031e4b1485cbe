// Package config handles configuration for the server component: defaults,
// then environment (with an optional .env file), then a JSON file, then
// command-line flags. Later layers override earlier ones.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/storage"
)

// Config holds runtime settings for the photocaption server.
type Config struct {
	HTTPAddr string

	// DatabaseBackend is one of sqlite, postgres, libsql. DatabaseDSN is a
	// file path, a Postgres URL or a libsql URL respectively.
	DatabaseBackend   string
	DatabaseDSN       string
	DatabaseAuthToken string

	// SecretKey signs session cookies. SettingsKey seals encrypted settings.
	SecretKey   string
	SettingsKey string

	LoginTokenTTL time.Duration
	SessionTTL    time.Duration
	InviteTTL     time.Duration

	// RegistrationOpen applies until an admin stores an explicit value.
	RegistrationOpen bool
	// DefaultTier meters users without an assigned tier.
	DefaultTier string
	BaseURL     string

	// Magic-link requests are throttled per email and per IP when RedisAddr
	// is set.
	RedisAddr       string
	RedisPassword   string
	RedisPrefix     string
	LoginRateLimit  int
	LoginRateWindow time.Duration

	TrustedProxies []string
	SecureCookies  bool

	LogLevel  string
	LogFormat string
	// Timezone defines the calendar day usage is counted in.
	Timezone string
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey and SettingsKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseBackend = storage.KindSQLite
	c.DatabaseDSN = "data/photocaption.db"
	c.SecretKey = "dev-secret-change-me"
	c.SettingsKey = "dev-settings-key-change-me"
	c.LoginTokenTTL = 15 * time.Minute
	c.SessionTTL = 7 * 24 * time.Hour
	c.InviteTTL = 7 * 24 * time.Hour
	c.RegistrationOpen = true
	c.DefaultTier = "Free"
	c.BaseURL = "http://localhost:8080"
	c.RedisPrefix = "photocaption:"
	c.LoginRateLimit = 5
	c.LoginRateWindow = 15 * time.Minute
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.Timezone = "UTC"
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.DatabaseBackend {
	case storage.KindSQLite, storage.KindPostgres, storage.KindLibSQL:
	default:
		errs = append(errs, fmt.Errorf("config: unknown database backend %q", c.DatabaseBackend))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("config: database dsn is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("config: secret key is required"))
	}
	if c.LoginTokenTTL <= 0 || c.SessionTTL <= 0 || c.InviteTTL <= 0 {
		errs = append(errs, errors.New("config: token lifetimes must be positive"))
	}
	if c.LoginRateLimit < 0 {
		errs = append(errs, errors.New("config: login rate limit must not be negative"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config from defaults, the environment, an optional
// JSON file (-c / -config) and finally command-line flags.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:], ".env")
}

// LoadFile builds a Config from defaults, the environment and the optional
// JSON file at path, for tools that parse their own command line.
func LoadFile(path string) (*Config, error) {
	var args []string
	if path != "" {
		args = []string{"-c", path}
	}
	return load(args, ".env")
}

func load(args []string, envFile string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg, envFile); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
