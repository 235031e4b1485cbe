package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/migrations"
	"github.com/dmitrijs2005/photocaption/internal/server/storage"
	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}

	var target int64
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations (up to --to when given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd.Context(), func(b *storage.Backend) error {
				m, err := migrations.New(b.DB, b.Dialect, ctx.logger)
				if err != nil {
					return err
				}
				if err := m.Migrate(cmd.Context(), target); err != nil {
					return err
				}
				v, err := m.CurrentVersion(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d (latest %d)\n", v, m.LatestVersion())
				return nil
			})
		},
	}
	upCmd.Flags().Int64Var(&target, "to", 0, "target version (0 = latest)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd.Context(), func(b *storage.Backend) error {
				m, err := migrations.New(b.DB, b.Dialect, ctx.logger)
				if err != nil {
					return err
				}
				statuses, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(statuses))
				for _, st := range statuses {
					applied := ""
					if st.AppliedAt != nil {
						applied = st.AppliedAt.UTC().Format(time.RFC3339)
					}
					rows = append(rows, []string{strconv.FormatInt(st.Version, 10), st.Name, yesNo(st.Applied), applied})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Version", "Name", "Applied", "Applied At"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}

	migrateCmd.AddCommand(upCmd, statusCmd)
	return migrateCmd
}
