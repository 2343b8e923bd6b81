package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/finleyhq/finley/internal/cli"
	"github.com/finleyhq/finley/internal/plaid"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull accounts and transactions from the linked bank",
		RunE:  runSync,
	}

	cmd.Flags().Int("days", 90, "how many days of history to fetch")
	cmd.Flags().Int("max", 2000, "maximum number of transactions to fetch")
	cmd.Flags().Bool("wait", true, "wait for background categorization to finish")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	syncer, store, categorizer, err := newSyncer(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	defer categorizer.Close()

	days, _ := cmd.Flags().GetInt("days")
	maxTxns, _ := cmd.Flags().GetInt("max")
	syncer.SetFetchOptions(plaid.FetchOptions{DaysBack: days, MaxTransactions: maxTxns})

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Syncing"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				_ = bar.Add(1)
			}
		}
	}()

	summary, err := syncer.Sync(ctx, "")
	close(done)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Sync complete"))
	fmt.Printf("  Accounts:         %d\n", summary.Accounts)
	fmt.Printf("  Transactions:     %d (%d new)\n", summary.Transactions, summary.NewTransactions)
	if summary.StartDate != "" {
		fmt.Printf("  Window:           %s to %s (%d pages)\n", summary.StartDate, summary.EndDate, summary.Pages)
	}
	if summary.FailedAccounts > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d accounts failed to sync, %d transactions skipped", summary.FailedAccounts, summary.Skipped)))
	}
	if summary.Note != "" {
		fmt.Println(cli.FormatWarning(summary.Note))
	}

	wait, _ := cmd.Flags().GetBool("wait")
	if summary.Categorization != nil {
		if !wait {
			summary.Categorization.Cancel()
			return nil
		}
		fmt.Printf("  Categorizing %d new transactions...\n", summary.NewTransactions)
		if err := summary.Categorization.Wait(); err != nil {
			fmt.Println(cli.FormatWarning("Some transactions could not be categorized; run 'finley categorize' to retry."))
		} else {
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Categorized %d transactions", summary.Categorization.Applied())))
		}
	}

	return nil
}
