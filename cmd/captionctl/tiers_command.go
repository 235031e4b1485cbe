package main

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/photocaption/internal/server/httpapi"
	"github.com/dmitrijs2005/photocaption/internal/server/services"
	"github.com/spf13/cobra"
)

func newTiersCommand(ctx *commandContext) *cobra.Command {
	tiersCmd := &cobra.Command{
		Use:   "tiers",
		Short: "Manage usage tiers",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tiers by daily limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(svc httpapi.Services) error {
				tiers, err := svc.Quota.ListTiers(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(tiers))
				for _, t := range tiers {
					limit := strconv.Itoa(t.DailyLimit)
					if t.Unlimited() {
						limit = "unlimited"
					}
					desc := ""
					if t.Description != nil {
						desc = *t.Description
					}
					rows = append(rows, []string{strconv.FormatInt(t.ID, 10), t.Name, limit, desc})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Daily Limit", "Description"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	var (
		limit       int
		description string
	)
	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a tier (--limit -1 for unlimited)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(svc httpapi.Services) error {
				in := services.TierInput{Name: args[0], DailyLimit: limit}
				if description != "" {
					in.Description = &description
				}
				t, err := svc.Quota.CreateTier(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created tier %d (%s, %d/day)\n", t.ID, t.Name, t.DailyLimit)
				return nil
			})
		},
	}
	createCmd.Flags().IntVar(&limit, "limit", 0, "daily limit, -1 for unlimited")
	createCmd.Flags().StringVar(&description, "description", "", "optional description")
	_ = createCmd.MarkFlagRequired("limit")

	tiersCmd.AddCommand(listCmd, createCmd)
	return tiersCmd
}
