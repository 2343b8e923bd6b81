package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/finleyhq/finley/internal/cli"
	"github.com/finleyhq/finley/internal/engine"
	"github.com/finleyhq/finley/internal/tokenstore"
)

func categorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize",
		Short: "Categorize transactions that have no category yet",
		Long: `Categorize every transaction that has no category yet.

Manually categorized transactions are never touched.`,
		RunE: runCategorize,
	}
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	categorizer, err := newCategorizer()
	if err != nil {
		return err
	}
	defer categorizer.Close()

	syncer := engine.NewSyncer(store, nil, categorizer, tokenstore.NewMemStore(), slog.Default())
	applied, err := syncer.CategorizeUncategorized(ctx)
	if err != nil {
		return err
	}

	if applied == 0 {
		fmt.Println("Nothing to categorize.")
		return nil
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Categorized %d transactions", applied)))
	return nil
}

func setCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-category <transaction-id> <category>",
		Short: "Set a transaction's category by hand",
		Long: `Set a transaction's category by hand.

A manual category is permanent: automatic categorization will never
overwrite it.`,
		Args: cobra.ExactArgs(2),
		RunE: runSetCategory,
	}
}

func runSetCategory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SetCategory(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Set category to %q", args[1])))
	return nil
}
