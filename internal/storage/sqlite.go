// Package storage implements the persistence layer on SQLite.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"database/sql"

	"github.com/finleyhq/finley/internal/common"
	"github.com/finleyhq/finley/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the service.Storage interface using SQLite. Every
// query is scoped to the profile the store was opened with.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
	userID string
}

// NewSQLiteStorage creates a new SQLite storage instance for one profile.
func NewSQLiteStorage(dbPath, userID string) (*SQLiteStorage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: dbPath cannot be empty", common.ErrInvalidConfig)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: userID cannot be empty", common.ErrInvalidConfig)
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
		userID: userID,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// persistErr tags a lower-level storage failure with the persistence sentinel
// so callers can match it with errors.Is.
func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrPersistence, op, err)
}

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return nil
}

// Ensure SQLiteStorage implements the Storage interface.
var _ service.Storage = (*SQLiteStorage)(nil)
