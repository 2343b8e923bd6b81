package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finleyhq/finley/internal/cli"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage linked accounts",
		RunE:  runAccountsList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List active accounts",
		RunE:  runAccountsList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <account-id>",
		Short: "Remove an account and hide its transactions",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountsRemove,
	})

	return cmd
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Println("No linked accounts. Run 'finley link' to connect one.")
		return nil
	}

	fmt.Println(cli.FormatTitle("Accounts"))
	for _, account := range accounts {
		fmt.Printf("  %s  %s %s  %s  %s\n",
			cli.SubtleStyle.Render(account.ID),
			account.BankName,
			cli.FormatMask(account.Mask),
			account.Subtype,
			cli.FormatAmount(account.Balance, account.Currency),
		)
	}
	return nil
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	account, err := store.GetAccountByID(ctx, args[0])
	if err != nil {
		return err
	}
	if err := store.DeactivateAccount(ctx, account.ID); err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed %s %s. Its transactions are hidden, not deleted.",
		account.BankName, cli.FormatMask(account.Mask))))

	// Once the last account is gone the connection is useless.
	remaining, err := store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		if err := newTokenStore().Clear(); err != nil {
			return err
		}
		fmt.Println("No active accounts left, cleared the bank connection.")
	}
	return nil
}
