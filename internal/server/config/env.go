package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "PHOTOCAPTION_"

// parseEnv loads envFile into the process environment (variables already set
// win) and then overlays PHOTOCAPTION_* variables onto config.
func parseEnv(config *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("DB_BACKEND", &config.DatabaseBackend)
	str("DB_DSN", &config.DatabaseDSN)
	str("DB_AUTH_TOKEN", &config.DatabaseAuthToken)
	str("SECRET_KEY", &config.SecretKey)
	str("SETTINGS_KEY", &config.SettingsKey)
	dur("LOGIN_TOKEN_TTL", &config.LoginTokenTTL)
	dur("SESSION_TTL", &config.SessionTTL)
	dur("INVITE_TTL", &config.InviteTTL)
	boolean("REGISTRATION_OPEN", &config.RegistrationOpen)
	str("DEFAULT_TIER", &config.DefaultTier)
	str("BASE_URL", &config.BaseURL)
	str("REDIS_ADDR", &config.RedisAddr)
	str("REDIS_PASSWORD", &config.RedisPassword)
	str("REDIS_PREFIX", &config.RedisPrefix)
	dur("LOGIN_RATE_WINDOW", &config.LoginRateWindow)
	boolean("SECURE_COOKIES", &config.SecureCookies)
	str("LOG_LEVEL", &config.LogLevel)
	str("LOG_FORMAT", &config.LogFormat)
	str("TIMEZONE", &config.Timezone)

	if v, ok := os.LookupEnv(EnvPrefix + "LOGIN_RATE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %sLOGIN_RATE_LIMIT: %w", EnvPrefix, err))
		} else {
			config.LoginRateLimit = n
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "TRUSTED_PROXIES"); ok {
		config.TrustedProxies = splitList(v)
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
