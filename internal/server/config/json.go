package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/flagx"
)

// Duration unmarshals from a Go duration string ("15m") or integer
// nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val)
		return nil
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

// JsonConfig is the JSON file layout. Pointer fields distinguish "absent"
// from zero values so a partial file only overrides what it names.
type JsonConfig struct {
	HTTPAddr          *string   `json:"http_addr"`
	DatabaseBackend   *string   `json:"database_backend"`
	DatabaseDSN       *string   `json:"database_dsn"`
	DatabaseAuthToken *string   `json:"database_auth_token"`
	SecretKey         *string   `json:"secret_key"`
	SettingsKey       *string   `json:"settings_key"`
	LoginTokenTTL     *Duration `json:"login_token_ttl"`
	SessionTTL        *Duration `json:"session_ttl"`
	InviteTTL         *Duration `json:"invite_ttl"`
	RegistrationOpen  *bool     `json:"registration_open"`
	DefaultTier       *string   `json:"default_tier"`
	BaseURL           *string   `json:"base_url"`
	RedisAddr         *string   `json:"redis_addr"`
	RedisPassword     *string   `json:"redis_password"`
	RedisPrefix       *string   `json:"redis_prefix"`
	LoginRateLimit    *int      `json:"login_rate_limit"`
	LoginRateWindow   *Duration `json:"login_rate_window"`
	TrustedProxies    []string  `json:"trusted_proxies"`
	SecureCookies     *bool     `json:"secure_cookies"`
	LogLevel          *string   `json:"log_level"`
	LogFormat         *string   `json:"log_format"`
	Timezone          *string   `json:"timezone"`
}

// parseJson overlays the file named by -c / -config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setStr(&config.HTTPAddr, c.HTTPAddr)
	setStr(&config.DatabaseBackend, c.DatabaseBackend)
	setStr(&config.DatabaseDSN, c.DatabaseDSN)
	setStr(&config.DatabaseAuthToken, c.DatabaseAuthToken)
	setStr(&config.SecretKey, c.SecretKey)
	setStr(&config.SettingsKey, c.SettingsKey)
	setDur(&config.LoginTokenTTL, c.LoginTokenTTL)
	setDur(&config.SessionTTL, c.SessionTTL)
	setDur(&config.InviteTTL, c.InviteTTL)
	if c.RegistrationOpen != nil {
		config.RegistrationOpen = *c.RegistrationOpen
	}
	setStr(&config.DefaultTier, c.DefaultTier)
	setStr(&config.BaseURL, c.BaseURL)
	setStr(&config.RedisAddr, c.RedisAddr)
	setStr(&config.RedisPassword, c.RedisPassword)
	setStr(&config.RedisPrefix, c.RedisPrefix)
	if c.LoginRateLimit != nil {
		config.LoginRateLimit = *c.LoginRateLimit
	}
	setDur(&config.LoginRateWindow, c.LoginRateWindow)
	if c.TrustedProxies != nil {
		config.TrustedProxies = c.TrustedProxies
	}
	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
	setStr(&config.LogLevel, c.LogLevel)
	setStr(&config.LogFormat, c.LogFormat)
	setStr(&config.Timezone, c.Timezone)
	return nil
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDur(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
