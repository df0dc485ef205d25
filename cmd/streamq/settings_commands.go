package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"streamq/internal/api"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change the server-persisted settings",
	}

	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))

	return settingsCmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			settings, err := client.GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{
				{"quality", settings.Quality},
				{"download-folder", settings.DownloadFolder},
				{"skip-forward", fmt.Sprintf("%ds", settings.SkipForward)},
				{"skip-backward", fmt.Sprintf("%ds", settings.SkipBackward)},
				{"volume", fmt.Sprintf("%.2f", settings.DefaultVolume)},
				{"speed", fmt.Sprintf("%.2f", settings.DefaultSpeed)},
				{"autoplay-next", yesNo(settings.AutoplayNext)},
				{"max-concurrent-downloads", strconv.Itoa(settings.MaxConcurrentDownloads)},
			}
			out := renderTable([]string{"Setting", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			settings, err := client.GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			if err := applySetting(&settings, args[0], args[1]); err != nil {
				return err
			}
			if _, err := client.PutSettings(cmd.Context(), settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func applySetting(settings *api.Settings, key, value string) error {
	switch key {
	case "quality":
		settings.Quality = value
	case "download-folder":
		settings.DownloadFolder = value
	case "skip-forward":
		return parseIntInto(&settings.SkipForward, key, value)
	case "skip-backward":
		return parseIntInto(&settings.SkipBackward, key, value)
	case "volume":
		return parseFloatInto(&settings.DefaultVolume, key, value)
	case "speed":
		return parseFloatInto(&settings.DefaultSpeed, key, value)
	case "autoplay-next":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s wants true or false, got %q", key, value)
		}
		settings.AutoplayNext = parsed
	case "max-concurrent-downloads":
		return parseIntInto(&settings.MaxConcurrentDownloads, key, value)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func parseIntInto(target *int, key, value string) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s wants a number, got %q", key, value)
	}
	*target = parsed
	return nil
}

func parseFloatInto(target *float64, key, value string) error {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s wants a number, got %q", key, value)
	}
	*target = parsed
	return nil
}
