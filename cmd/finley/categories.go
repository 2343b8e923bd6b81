package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/finleyhq/finley/internal/cli"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		RunE:  runCategoriesList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE:  runCategoriesList,
	})

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom category",
		Args:  cobra.ExactArgs(1),
		RunE:  runCategoriesAdd,
	}
	add.Flags().String("color", "#95A5A6", "hex color for the category")
	cmd.AddCommand(add)

	return cmd
}

func runCategoriesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	categories, err := store.ListCategories(ctx)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Categories"))
	for _, category := range categories {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(category.Color)).Render("●")
		name := category.Name
		if category.IsDefault {
			name += cli.SubtleStyle.Render(" (default)")
		}
		fmt.Printf("  %s %s\n", swatch, name)
	}
	return nil
}

func runCategoriesAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	color, _ := cmd.Flags().GetString("color")
	category, err := store.CreateCategory(ctx, args[0], color)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Category %q ready", category.Name)))
	return nil
}
