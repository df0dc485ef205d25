package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"streamq/internal/download"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Start and inspect server-side downloads",
	}

	downloadCmd.AddCommand(newDownloadStartCommand(ctx))
	downloadCmd.AddCommand(newDownloadStatusCommand(ctx))
	downloadCmd.AddCommand(newDownloadClearCommand(ctx))

	return downloadCmd
}

func newDownloadStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <position|id>...",
		Short: "Ask the server to download queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			for _, arg := range args {
				item, ok := resolveItem(store.Items(), arg)
				if !ok {
					return fmt.Errorf("no queue item matching %q", arg)
				}
				id, title, err := client.SubmitDownload(cmd.Context(), item.URL)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "downloading %s (%s)\n", title, id)
			}
			return nil
		},
	}
}

func newDownloadStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show every known download job",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			statuses, err := client.AllDownloadStatus(cmd.Context())
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No download jobs")
				return nil
			}
			ids := make([]string, 0, len(statuses))
			for id := range statuses {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				status := statuses[id]
				speed := "-"
				if status.Status.Active() && status.Speed > 0 {
					speed = download.FormatSpeed(status.Speed)
				}
				rows = append(rows, []string{
					id,
					truncate(status.Title, 40),
					displayStatus(string(status.Status)),
					formatProgress(status.Progress),
					speed,
				})
			}
			out := renderTable(
				[]string{"ID", "Title", "Status", "Progress", "Speed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newDownloadClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-done",
		Short: "Drop finished and failed jobs from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if err := client.ClearCompletedDownloads(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "completed jobs cleared")
			return nil
		},
	}
}
