// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/finleyhq/finley/internal/model"
)

// Storage defines the contract for the persistence layer. All operations are
// scoped to the profile the store was opened with.
type Storage interface {
	// Account operations
	ListAccounts(ctx context.Context) ([]model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	UpsertAccount(ctx context.Context, account model.Account) (*model.Account, error)
	DeactivateAccount(ctx context.Context, id string) error

	// Transaction operations
	ListTransactions(ctx context.Context, accountID string) ([]model.Transaction, error)
	UpsertTransactions(ctx context.Context, transactions []model.Transaction) ([]model.UpsertedTransaction, error)
	SetCategory(ctx context.Context, transactionID, category string) error
	SetCategoryAuto(ctx context.Context, transactionID, category string) error

	// Category operations
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, name, color string) (*model.Category, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
