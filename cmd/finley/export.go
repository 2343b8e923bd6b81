package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finleyhq/finley/internal/cli"
	"github.com/finleyhq/finley/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger to external destinations",
	}

	sheetsCmd := &cobra.Command{
		Use:   "sheets",
		Short: "Export transactions to a Google Sheets spreadsheet",
		RunE:  runExportSheets,
	}
	sheetsCmd.Flags().String("spreadsheet-id", "", "existing spreadsheet to overwrite (default: create a new one)")
	cmd.AddCommand(sheetsCmd)

	return cmd
}

func runExportSheets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	config := sheets.DefaultConfig()
	config.ClientID = viper.GetString("sheets.client_id")
	config.ClientSecret = viper.GetString("sheets.client_secret")
	if name := viper.GetString("sheets.spreadsheet_name"); name != "" {
		config.SpreadsheetName = name
	}
	if config.TokenFile = viper.GetString("sheets.token_file"); config.TokenFile == "" {
		config.TokenFile = expandPath("$HOME/.local/share/finley/google-token.json")
	}
	if id, _ := cmd.Flags().GetString("spreadsheet-id"); id != "" {
		config.SpreadsheetID = id
	}
	if err := config.Validate(); err != nil {
		return err
	}

	token, err := sheets.GetOrCreateToken(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to authenticate with Google: %w", err)
	}

	writer, err := sheets.NewWriter(ctx, config, token, nil)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	transactions, err := store.ListTransactions(ctx, "")
	if err != nil {
		return err
	}
	if len(transactions) == 0 {
		fmt.Println("Nothing to export. Run 'finley sync' first.")
		return nil
	}

	url, err := writer.Export(ctx, accounts, transactions)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d transactions", len(transactions))))
	fmt.Printf("  %s\n", url)
	return nil
}
