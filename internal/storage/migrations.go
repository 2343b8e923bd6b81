package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					external_id TEXT NOT NULL,
					bank_name TEXT NOT NULL,
					account_type TEXT,
					account_subtype TEXT,
					mask TEXT NOT NULL DEFAULT '0000',
					balance REAL NOT NULL DEFAULT 0,
					currency TEXT NOT NULL DEFAULT 'CAD',
					provider TEXT NOT NULL DEFAULT 'plaid',
					connected_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					last_synced_at DATETIME,
					is_active INTEGER NOT NULL DEFAULT 1,
					UNIQUE(external_id, user_id)
				)`,
				`CREATE INDEX idx_accounts_user ON accounts(user_id)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					account_id TEXT NOT NULL,
					external_id TEXT NOT NULL,
					description TEXT NOT NULL,
					amount REAL NOT NULL,
					date DATETIME NOT NULL,
					merchant_name TEXT,
					category_name TEXT,
					is_manual_category INTEGER NOT NULL DEFAULT 0,
					user_id TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(external_id, account_id),
					FOREIGN KEY (account_id) REFERENCES accounts(id)
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_account ON transactions(account_id)`,
				`CREATE INDEX idx_transactions_user ON transactions(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Categories table",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					color TEXT NOT NULL DEFAULT '#999999',
					is_default INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(name, user_id)
				)`,
				`CREATE INDEX idx_categories_user ON categories(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// defaultCategories is seeded per profile so the UI always has the closed
// taxonomy available for grouping and selection.
var defaultCategories = []struct {
	Name  string
	Color string
}{
	{"Food & Dining", "#FF6B6B"},
	{"Groceries", "#4ECDC4"},
	{"Shopping", "#FFE66D"},
	{"Transportation", "#95E1D3"},
	{"Bills & Utilities", "#A8DADC"},
	{"Entertainment", "#C38D9E"},
	{"Health & Fitness", "#41B3A3"},
	{"Income", "#85CB33"},
	{"Other", "#999999"},
}

// SchemaVersion reports the current schema version of the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate brings the schema to the expected version and seeds the default
// categories for this profile.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= version {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return s.seedDefaultCategories(ctx)
}

func (s *SQLiteStorage) seedDefaultCategories(ctx context.Context) error {
	stmt, err := s.db.PrepareContext(ctx, `
		INSERT OR IGNORE INTO categories (id, user_id, name, color, is_default)
		VALUES (?, ?, ?, ?, 1)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare category seed: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, cat := range defaultCategories {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), s.userID, cat.Name, cat.Color); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", cat.Name, err)
		}
	}
	return nil
}
