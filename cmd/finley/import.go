package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/finleyhq/finley/internal/cli"
	"github.com/finleyhq/finley/internal/engine"
	"github.com/finleyhq/finley/internal/ofx"
	"github.com/finleyhq/finley/internal/tokenstore"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ofx <file>",
		Short: "Import an OFX/QFX statement export",
		Long: `Import an OFX or QFX statement downloaded from your bank.

Accounts and transactions found in the file are merged into the ledger
with the same dedupe rules as a sync, and new transactions are
categorized.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportOFX,
	})

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	file, err := os.Open(args[0]) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = file.Close() }()

	stmt, err := ofx.NewParser().Parse(file)
	if err != nil {
		return err
	}
	if len(stmt.Accounts) == 0 {
		return fmt.Errorf("no accounts found in %s", args[0])
	}

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
	summary, err := syncer.Ingest(ctx, stmt.Accounts, stmt.Transactions, "ofx")
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Import complete"))
	fmt.Printf("  Accounts:     %d\n", summary.Accounts)
	fmt.Printf("  Transactions: %d (%d new)\n", summary.Transactions, summary.NewTransactions)

	if summary.Categorization != nil {
		fmt.Printf("  Categorizing %d new transactions...\n", summary.NewTransactions)
		if err := summary.Categorization.Wait(); err != nil {
			fmt.Println(cli.FormatWarning("Some transactions could not be categorized; run 'finley categorize' to retry."))
		} else {
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Categorized %d transactions", summary.Categorization.Applied())))
		}
	}
	return nil
}
