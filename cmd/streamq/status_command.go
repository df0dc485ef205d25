package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server reachability and credential freshness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Server:       %s\n", cfg.Server.BaseURL)
			items, err := client.ListQueue(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Reachable:    no (%v)\n", err)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reachable:    yes")
			fmt.Fprintf(cmd.OutOrStdout(), "Queue items:  %d\n", len(items))

			cookie, err := client.CookiesStatus(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Cookies:      unknown (%v)\n", err)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cookies:      %s (%d)\n", yesNo(cookie.Exists), cookie.Count)
			fmt.Fprintf(cmd.OutOrStdout(), "Auto-extract: %s\n", yesNo(cookie.AutoExtract))
			return nil
		},
	}
}
