package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newDataCommand(ctx *commandContext) *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Export and import the full application state",
	}

	dataCmd.AddCommand(newDataExportCommand(ctx))
	dataCmd.AddCommand(newDataImportCommand(ctx))

	return dataCmd
}

func newDataExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the state bundle (queue + settings)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			bundle, err := client.Export(cmd.Context())
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(bundle)
				return err
			}
			if err := os.WriteFile(outPath, bundle, 0o644); err != nil {
				return fmt.Errorf("write bundle: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d bytes to %s\n", len(bundle), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the bundle to this file instead of stdout")
	return cmd
}

func newDataImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <bundle-file>",
		Short: "Upload a state bundle, replacing the server's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open bundle: %w", err)
			}
			defer file.Close()
			result, err := client.Import(cmd.Context(), file.Name(), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported; queue now holds %d item(s)\n", result.QueueCount)
			return nil
		},
	}
}

func newRelatedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "related <position|id>",
		Short: "Suggest content related to a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			item, ok := resolveItem(store.Items(), args[0])
			if !ok {
				return fmt.Errorf("no queue item matching %q", args[0])
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			related, err := client.Related(cmd.Context(), item.URL)
			if err != nil {
				return err
			}
			if len(related) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No suggestions")
				return nil
			}
			rows := make([][]string, 0, len(related))
			for _, video := range related {
				rows = append(rows, []string{truncate(video.Title, 50), video.Duration, video.URL})
			}
			out := renderTable(
				[]string{"Title", "Duration", "URL"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newCookiesCommand(ctx *commandContext) *cobra.Command {
	cookiesCmd := &cobra.Command{
		Use:   "cookies",
		Short: "Inspect and refresh the server's scraping credentials",
	}

	cookiesCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show credential freshness",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.CookiesStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Present:      %s\n", yesNo(status.Exists))
			fmt.Fprintf(cmd.OutOrStdout(), "Count:        %d\n", status.Count)
			fmt.Fprintf(cmd.OutOrStdout(), "Auto-extract: %s\n", yesNo(status.AutoExtract))
			return nil
		},
	})
	cookiesCmd.AddCommand(&cobra.Command{
		Use:   "extract",
		Short: "Refresh credentials from a local browser profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			result, err := client.ExtractCookies(cmd.Context())
			if err != nil {
				return err
			}
			if !result.OK {
				return fmt.Errorf("extraction failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d cookie(s) from %s\n", result.Count, result.Browser)
			return nil
		},
	})

	return cookiesCmd
}
