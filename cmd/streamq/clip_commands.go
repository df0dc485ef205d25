package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamq/internal/api"
)

func newClipCommand(ctx *commandContext) *cobra.Command {
	clipCmd := &cobra.Command{
		Use:   "clip",
		Short: "Extract a section of a queue item",
	}

	clipCmd.AddCommand(newClipStartCommand(ctx))
	clipCmd.AddCommand(newClipStatusCommand(ctx))

	return clipCmd
}

func newClipStartCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "start <position|id> <start-sec> <end-sec>",
		Short: "Request extraction of [start, end) seconds",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			item, ok := resolveItem(store.Items(), args[0])
			if !ok {
				return fmt.Errorf("no queue item matching %q", args[0])
			}
			var start, end int
			if _, err := fmt.Sscanf(args[1], "%d", &start); err != nil {
				return fmt.Errorf("start %q is not a number", args[1])
			}
			if _, err := fmt.Sscanf(args[2], "%d", &end); err != nil {
				return fmt.Errorf("end %q is not a number", args[2])
			}
			if end <= start {
				return fmt.Errorf("end must be after start")
			}
			if title == "" {
				title = fmt.Sprintf("%s [%s-%s]", item.Title, formatDuration(float64(start)), formatDuration(float64(end)))
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			id, err := client.SubmitClip(cmd.Context(), item.URL, start, end, title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "clip job %s started; poll with `streamq clip status %s`\n", id, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Clip title (defaults to the item title with the range)")
	return cmd
}

func newClipStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show one clip job's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.GetClipStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", displayStatus(string(status.Status)))
			switch status.Status {
			case api.ClipDone:
				fmt.Fprintf(cmd.OutOrStdout(), "Size:   %s\n", formatBytes(status.Size))
			case api.ClipError:
				fmt.Fprintf(cmd.OutOrStdout(), "Error:  %s\n", status.Error)
			}
			return nil
		},
	}
}
