package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finleyhq/finley/internal/cli"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions",
		RunE:  runTransactions,
	}

	cmd.Flags().String("account", "", "only show transactions for this account id")
	cmd.Flags().Int("limit", 50, "maximum number of transactions to show (0 for all)")
	return cmd
}

func runTransactions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	accountID, _ := cmd.Flags().GetString("account")
	limit, _ := cmd.Flags().GetInt("limit")

	transactions, err := store.ListTransactions(ctx, accountID)
	if err != nil {
		return err
	}
	if len(transactions) == 0 {
		fmt.Println("No transactions yet. Run 'finley sync' to pull some.")
		return nil
	}

	shown := transactions
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	fmt.Println(cli.FormatTitle("Transactions"))
	for _, tx := range shown {
		category := tx.CategoryName
		if category == "" {
			category = cli.SubtleStyle.Render("uncategorized")
		} else if tx.IsManualCategory {
			category += " *"
		}
		fmt.Printf("  %s  %-36s %-20s %s\n",
			cli.FormatDate(tx.Date),
			cli.Truncate(tx.Description, 36),
			cli.Truncate(category, 20),
			cli.FormatAmount(tx.Amount, ""),
		)
	}

	if len(shown) < len(transactions) {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("  ... and %d more (use --limit 0 to see all)", len(transactions)-len(shown))))
	}
	return nil
}
