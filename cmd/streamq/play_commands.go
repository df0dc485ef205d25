package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"streamq/internal/api"
	"streamq/internal/localstate"
	"streamq/internal/playback"
	"streamq/internal/queuestate"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var showHeatmap bool

	cmd := &cobra.Command{
		Use:   "play <position|id>",
		Short: "Resolve an item for playback: source URL, resume offset, hot sections",
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
			return printPlayback(ctx, cmd, item, showHeatmap)
		},
	}

	cmd.Flags().BoolVar(&showHeatmap, "heatmap", false, "Show the most rewatched sections")
	return cmd
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	return newNeighborCommand(ctx, "next", "Resolve the item after the last played one", 1)
}

func newPrevCommand(ctx *commandContext) *cobra.Command {
	return newNeighborCommand(ctx, "prev", "Resolve the item before the last played one", -1)
}

// newNeighborCommand builds next/prev: both step from the locally remembered
// last-played item with wraparound, so `next` on the tail lands on the head.
func newNeighborCommand(ctx *commandContext, use, short string, delta int) *cobra.Command {
	var showHeatmap bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			if store.Len() == 0 {
				return fmt.Errorf("queue is empty")
			}
			item, err := neighborItem(ctx, cmd, store, delta)
			if err != nil {
				return err
			}
			return printPlayback(ctx, cmd, item, showHeatmap)
		},
	}

	cmd.Flags().BoolVar(&showHeatmap, "heatmap", false, "Show the most rewatched sections")
	return cmd
}

// neighborItem steps from the remembered last-played item. With no memory
// (fresh state dir, or the item left the queue) `next` starts at the head
// and `prev` at the tail.
func neighborItem(ctx *commandContext, cmd *cobra.Command, store *queuestate.Store, delta int) (api.QueueItem, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return api.QueueItem{}, err
	}
	local, err := localstate.Open(cfg)
	if err != nil {
		return api.QueueItem{}, err
	}
	defer local.Close()

	session, err := local.LastSession(cmd.Context())
	if err != nil {
		return api.QueueItem{}, err
	}
	n := store.Len()
	index := store.IndexOf(session.LastItemID)
	if index < 0 {
		if delta > 0 {
			index = -1 // head after the step
		} else {
			index = n // tail after the step
		}
	}
	index = ((index+delta)%n + n) % n
	item, _ := store.At(index)
	return item, nil
}

// printPlayback writes the resolved playback sheet and remembers the item as
// last played. The memory write is best effort: a second running instance
// holds the state lock, and losing continuity there beats failing the
// command.
func printPlayback(ctx *commandContext, cmd *cobra.Command, item api.QueueItem, showHeatmap bool) error {
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Title:   %s\n", item.Title)
	fmt.Fprintf(cmd.OutOrStdout(), "Source:  %s\n", client.StreamURL(item.URL))

	position, err := client.GetPosition(cmd.Context(), item.ID)
	if err != nil {
		return err
	}
	if position > 0 && position < item.Duration-2 {
		fmt.Fprintf(cmd.OutOrStdout(), "Resume:  %s\n", formatDuration(position))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Resume:  from the start")
	}

	rememberLastPlayed(ctx, cmd, item.ID)

	if !showHeatmap {
		return nil
	}
	heat, err := client.GetHeatmap(cmd.Context(), item.ID)
	if err != nil {
		return err
	}
	segments := playback.Segments(heat)
	if len(segments) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Heatmap: no signal yet")
		return nil
	}
	for _, segment := range segments {
		label := "mid"
		if segment.Tier == playback.TierHigh {
			label = "high"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Hot:     %s (%s)\n", formatDuration(float64(segment.Second)), label)
	}
	return nil
}

func rememberLastPlayed(ctx *commandContext, cmd *cobra.Command, itemID string) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return
	}
	local, err := localstate.Open(cfg)
	if err != nil {
		ctx.ensureLogger().Debug("skipping last-played save", "error", err)
		return
	}
	defer local.Close()
	session, err := local.LastSession(cmd.Context())
	if err != nil {
		return
	}
	session.LastItemID = itemID
	if err := local.SaveSession(cmd.Context(), session); err != nil {
		ctx.ensureLogger().Debug("saving last-played failed", "error", err)
	}
}

// resolveItem accepts a 1-based queue position or an item id.
func resolveItem(items []api.QueueItem, arg string) (api.QueueItem, bool) {
	if position, err := strconv.Atoi(arg); err == nil {
		if position >= 1 && position <= len(items) {
			return items[position-1], true
		}
		return api.QueueItem{}, false
	}
	for _, item := range items {
		if item.ID == arg {
			return item, true
		}
	}
	return api.QueueItem{}, false
}
