package main

import (
	"fmt"

	"github.com/dmitrijs2005/photocaption/internal/server/httpapi"
	"github.com/spf13/cobra"
)

func newGCCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Purge expired login tokens and sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(svc httpapi.Services) error {
				res, err := svc.Admin.GC(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d login tokens and %d sessions\n", res.LoginTokens, res.Sessions)
				return nil
			})
		},
	}
}
