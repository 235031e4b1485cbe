package main

import (
	"fmt"

	"github.com/dmitrijs2005/photocaption/internal/server/httpapi"
	"github.com/dmitrijs2005/photocaption/internal/server/mailer"
	"github.com/dmitrijs2005/photocaption/internal/server/services"
	"github.com/spf13/cobra"
)

func newInvitesCommand(ctx *commandContext) *cobra.Command {
	invitesCmd := &cobra.Command{
		Use:   "invites",
		Short: "Manage invitations",
	}

	var (
		tierName string
		message  string
	)
	createCmd := &cobra.Command{
		Use:   "create EMAIL",
		Short: "Create an invite and print its link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(svc httpapi.Services) error {
				tierID, err := lookupTier(cmd.Context(), svc, tierName)
				if err != nil {
					return err
				}
				in := services.InviteInput{Email: args[0], TierID: tierID}
				if message != "" {
					in.Message = &message
				}
				inv, err := svc.Invites.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Invite for %s expires %s\n%s\n",
					inv.Email, inv.ExpiresAt.Format("2006-01-02 15:04 MST"),
					mailer.Link(ctx.config.BaseURL, services.AcceptPath, inv.Token))
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&tierName, "tier", "", "tier assigned on acceptance")
	createCmd.Flags().StringVar(&message, "message", "", "personal message")

	invitesCmd.AddCommand(createCmd)
	return invitesCmd
}
