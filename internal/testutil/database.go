// Package testutil provides shared helpers for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/finleyhq/finley/internal/storage"
)

// TestUserID is the profile all test databases are opened with.
const TestUserID = "test-user"

// SetupTestDB creates a migrated in-memory SQLite store scoped to TestUserID.
// Cleanup is registered automatically.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:", TestUserID)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
