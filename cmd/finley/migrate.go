package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finleyhq/finley/internal/cli"
	"github.com/finleyhq/finley/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required tables
and indexes.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "show the current schema version without applying changes")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	statusOnly, _ := cmd.Flags().GetBool("status")

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/finley/finley.db"
	}
	dbPath = expandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath, profileName())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if statusOnly {
		version, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Schema version %d of %d (%s)\n", version, storage.ExpectedSchemaVersion, dbPath)
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Database is at schema version %d", storage.ExpectedSchemaVersion)))
	return nil
}
