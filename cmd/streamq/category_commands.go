package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamq/internal/category"
	"streamq/internal/queuestate"
)

func newCategoryCommand(ctx *commandContext) *cobra.Command {
	categoryCmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage categories and item assignments",
	}

	categoryCmd.AddCommand(newCategoryListCommand(ctx))
	categoryCmd.AddCommand(newCategoryAddCommand(ctx))
	categoryCmd.AddCommand(newCategoryRenameCommand(ctx))
	categoryCmd.AddCommand(newCategoryRemoveCommand(ctx))
	categoryCmd.AddCommand(newCategoryAssignCommand(ctx))

	return categoryCmd
}

// openIndex builds the category index over a freshly loaded queue mirror.
func openIndex(ctx *commandContext, cmd *cobra.Command) (*category.Index, *queuestate.Store, error) {
	store, err := openStore(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	client, err := ctx.apiClient()
	if err != nil {
		return nil, nil, err
	}
	index := category.NewIndex(client, store, ctx.ensureLogger())
	if err := index.Load(cmd.Context()); err != nil {
		return nil, nil, err
	}
	return index, store, nil
}

func newCategoryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with item counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			categories := index.Categories()
			counts := index.Counts()
			if len(categories) == 0 && counts[""] == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No categories defined")
				return nil
			}
			rows := make([][]string, 0, len(categories)+1)
			for _, cat := range categories {
				rows = append(rows, []string{cat.ID, cat.Name, cat.Color, fmt.Sprintf("%d", counts[cat.ID])})
			}
			rows = append(rows, []string{"-", "(uncategorized)", "", fmt.Sprintf("%d", counts[""])})
			out := renderTable(
				[]string{"ID", "Name", "Color", "Items"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newCategoryAddCommand(ctx *commandContext) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Define a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			cat, err := index.Create(cmd.Context(), args[0], color)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", cat.Name, cat.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "Display color, e.g. #ff8800")
	return cmd
}

func newCategoryRenameCommand(ctx *commandContext) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "rename <id> <new-name>",
		Short: "Rename or recolor a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			cat, err := index.Update(cmd.Context(), args[0], args[1], color)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", cat.Name, cat.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "New display color")
	return cmd
}

func newCategoryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Delete a category; its items become uncategorized",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			if _, ok := index.Get(args[0]); !ok {
				return fmt.Errorf("no category with id %q", args[0])
			}
			if err := index.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "category deleted")
			return nil
		},
	}
}

func newCategoryAssignCommand(ctx *commandContext) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "assign <category-id> <item-id>...",
		Short: "Assign items to a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, store, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			if clear {
				for _, id := range args {
					if _, ok := store.Get(id); !ok {
						return fmt.Errorf("no queue item with id %q", id)
					}
				}
				return index.BulkAssign(cmd.Context(), args, nil)
			}
			if len(args) < 2 {
				return fmt.Errorf("assign needs a category id and at least one item id")
			}
			categoryID, itemIDs := args[0], args[1:]
			if _, ok := index.Get(categoryID); !ok {
				return fmt.Errorf("no category with id %q", categoryID)
			}
			for _, id := range itemIDs {
				if _, ok := store.Get(id); !ok {
					return fmt.Errorf("no queue item with id %q", id)
				}
			}
			return index.BulkAssign(cmd.Context(), itemIDs, &categoryID)
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the category from the given item ids instead")
	return cmd
}
