package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/server"
	"github.com/dmitrijs2005/photocaption/internal/server/config"
	"github.com/dmitrijs2005/photocaption/internal/server/httpapi"
	"github.com/dmitrijs2005/photocaption/internal/server/migrations"
	"github.com/dmitrijs2005/photocaption/internal/server/ratelimit"
	"github.com/dmitrijs2005/photocaption/internal/server/storage"
	"github.com/spf13/cobra"
)

type commandContext struct {
	configFlag    string
	backendFlag   string
	dsnFlag       string
	authTokenFlag string

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     logging.Logger
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "captionctl",
		Short:         "Photocaption operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "JSON configuration file")
	rootCmd.PersistentFlags().StringVar(&ctx.backendFlag, "backend", "", "database backend (sqlite, postgres, libsql)")
	rootCmd.PersistentFlags().StringVar(&ctx.dsnFlag, "dsn", "", "database DSN")
	rootCmd.PersistentFlags().StringVar(&ctx.authTokenFlag, "auth-token", "", "libsql auth token")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newUsersCommand(ctx))
	rootCmd.AddCommand(newTiersCommand(ctx))
	rootCmd.AddCommand(newInvitesCommand(ctx))
	rootCmd.AddCommand(newGCCommand(ctx))

	return rootCmd
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.LoadFile(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if c.backendFlag != "" {
			cfg.DatabaseBackend = c.backendFlag
		}
		if c.dsnFlag != "" {
			cfg.DatabaseDSN = c.dsnFlag
		}
		if c.authTokenFlag != "" {
			cfg.DatabaseAuthToken = c.authTokenFlag
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logging.New(cfg.LogLevel, "text", cmd.ErrOrStderr())
	})
	return c.config, c.configErr
}

// withBackend opens the database without touching its schema.
func (c *commandContext) withBackend(ctx context.Context, fn func(*storage.Backend) error) error {
	b, err := storage.Open(ctx, storage.Options{
		Kind:      c.config.DatabaseBackend,
		DSN:       c.config.DatabaseDSN,
		AuthToken: c.config.DatabaseAuthToken,
	})
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

// withServices runs fn against a database whose schema is current.
func (c *commandContext) withServices(ctx context.Context, fn func(httpapi.Services) error) error {
	return c.withBackend(ctx, func(b *storage.Backend) error {
		m, err := migrations.New(b.DB, b.Dialect, c.logger)
		if err != nil {
			return err
		}
		current, err := m.CurrentVersion(ctx)
		if err != nil {
			return err
		}
		if current < m.LatestVersion() {
			return fmt.Errorf("schema is at version %d of %d; run `captionctl migrate up` first", current, m.LatestVersion())
		}

		svc, err := server.Services(b, c.config, ratelimit.Unlimited{}, c.logger)
		if err != nil {
			return err
		}
		return fn(svc)
	})
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
