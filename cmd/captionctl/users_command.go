package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/httpapi"
	"github.com/spf13/cobra"
)

func newUsersCommand(ctx *commandContext) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users with tier and today's usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(svc httpapi.Services) error {
				users, err := svc.Admin.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					lastLogin := "-"
					if u.LastLogin != nil {
						lastLogin = u.LastLogin.UTC().Format(time.RFC3339)
					}
					tier := u.TierName
					if tier == "" {
						tier = "(default)"
					}
					rows = append(rows, []string{
						strconv.FormatInt(u.ID, 10), u.Email, yesNo(u.IsActive), yesNo(u.IsAdmin),
						tier, strconv.Itoa(u.UsageToday), lastLogin,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Email", "Active", "Admin", "Tier", "Today", "Last Login"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	var (
		admin    bool
		tierName string
	)
	createCmd := &cobra.Command{
		Use:   "create EMAIL",
		Short: "Create an active user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(svc httpapi.Services) error {
				tierID, err := lookupTier(cmd.Context(), svc, tierName)
				if err != nil {
					return err
				}
				u, err := svc.Admin.CreateUser(cmd.Context(), args[0], admin, tierID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s)\n", u.ID, u.Email)
				return nil
			})
		},
	}
	createCmd.Flags().BoolVar(&admin, "admin", false, "grant admin rights")
	createCmd.Flags().StringVar(&tierName, "tier", "", "tier name (default tier when empty)")

	usersCmd.AddCommand(listCmd, createCmd)
	return usersCmd
}

// lookupTier resolves a tier name to its id. An empty name means none.
func lookupTier(ctx context.Context, svc httpapi.Services, name string) (*int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	tiers, err := svc.Quota.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tiers {
		if strings.EqualFold(t.Name, name) {
			id := t.ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", common.ErrorInvalidTier, name)
}
