package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/flagx"
)

// parseFlags overlays short command-line flags:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-b string   database backend: sqlite, postgres, libsql
//	-d string   database DSN / path / URL
//	-s string   session signing secret
//	-k string   settings sealing passphrase
//	-t int      login token lifetime, minutes
//	-r string   Redis address for magic-link throttling
//	-l string   log level
//	-z string   timezone for daily usage
//
// Arguments are filtered first so flags handled elsewhere (-c) do not fail
// the parse.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-b", "-d", "-s", "-k", "-t", "-r", "-l", "-z"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseBackend, "b", config.DatabaseBackend, "database backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.SettingsKey, "k", config.SettingsKey, "settings sealing key")
	loginTTL := fs.Int("t", int(config.LoginTokenTTL.Minutes()), "login token validity (in minutes)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.Timezone, "z", config.Timezone, "timezone for daily usage")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.LoginTokenTTL = time.Duration(*loginTTL) * time.Minute
		}
	})
	return nil
}
