package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"streamq/internal/api"
	"streamq/internal/dedup"
	"streamq/internal/queuestate"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the media queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueMoveCommand(ctx))
	queueCmd.AddCommand(newQueueDedupeCommand(ctx))

	return queueCmd
}

// openStore builds the queue mirror for a one-shot command and fills it with
// the server's current queue.
func openStore(ctx *commandContext, cmd *cobra.Command) (*queuestate.Store, error) {
	client, err := ctx.apiClient()
	if err != nil {
		return nil, err
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store := queuestate.New(client, cfg.QueueRefreshInterval(), ctx.ensureLogger())
	if err := store.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return store, nil
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var categoryFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			items := store.Items()
			if categoryFilter != "" {
				var filtered []api.QueueItem
				for _, item := range items {
					if item.Category == categoryFilter {
						filtered = append(filtered, item)
					}
				}
				items = filtered
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for i, item := range items {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					item.ID,
					truncate(item.Title, 50),
					formatDuration(item.Duration),
					item.Category,
				})
			}
			out := renderTable(
				[]string{"#", "ID", "Title", "Duration", "Category"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryFilter, "category", "", "Only show items in this category id")
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>...",
		Short: "Add one or more URLs to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			for _, rawURL := range args {
				item, err := store.Add(cmd.Context(), rawURL)
				if api.IsDuplicate(err) {
					fmt.Fprintf(cmd.OutOrStdout(), "skipped %s: already in queue\n", rawURL)
					continue
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", item.Title, item.ID)
			}
			return nil
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Remove items from the queue",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			for _, id := range args {
				if _, ok := store.Get(id); !ok {
					return fmt.Errorf("no queue item with id %q", id)
				}
			}
			if len(args) == 1 {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
			} else if err := store.BulkDelete(cmd.Context(), args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d item(s)\n", len(args))
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every item from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			if store.Len() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			if !force {
				return fmt.Errorf("refusing to clear %d items without --force", store.Len())
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "queue cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation requirement")
	return cmd
}

func newQueueMoveCommand(ctx *commandContext) *cobra.Command {
	var toTop, toBottom bool
	var toIndex int

	cmd := &cobra.Command{
		Use:   "move <id>...",
		Short: "Move items to the top, bottom, or a position",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			switch {
			case toTop:
				return store.MoveToTop(cmd.Context(), args)
			case toBottom:
				return store.MoveToBottom(cmd.Context(), args)
			case toIndex > 0:
				if len(args) != 1 {
					return fmt.Errorf("--to moves exactly one item")
				}
				from := store.IndexOf(args[0])
				if from < 0 {
					return fmt.Errorf("no queue item with id %q", args[0])
				}
				store.Reorder(from, toIndex-1)
				return nil
			default:
				return fmt.Errorf("one of --top, --bottom, or --to is required")
			}
		},
	}

	cmd.Flags().BoolVar(&toTop, "top", false, "Move to the head of the queue")
	cmd.Flags().BoolVar(&toBottom, "bottom", false, "Move to the tail of the queue")
	cmd.Flags().IntVar(&toIndex, "to", 0, "Move to this 1-based position")
	return cmd
}

func newQueueDedupeCommand(ctx *commandContext) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Find and remove duplicate entries of the same video",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			plan := dedup.NewPlan(store.Items())
			if len(plan.Groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No duplicates found")
				return nil
			}
			for _, group := range plan.Groups {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", group.Key)
				fmt.Fprintf(cmd.OutOrStdout(), "  keep   %s  %s\n", group.Keep.ID, strings.TrimSpace(group.Keep.Title))
				for _, candidate := range group.Candidates {
					fmt.Fprintf(cmd.OutOrStdout(), "  remove %s  %s\n", candidate.ID, strings.TrimSpace(candidate.Title))
				}
			}
			if !apply {
				fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) selected; re-run with --apply to remove them\n", len(plan.SelectedIDs()))
				return nil
			}
			count := len(plan.SelectedIDs())
			if err := plan.Apply(cmd.Context(), store); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d duplicate(s)\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Remove the selected duplicates")
	return cmd
}
