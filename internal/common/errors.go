// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Configuration errors.
	ErrCredentialsMissing = errors.New("aggregator credentials not configured")
	ErrInvalidConfig      = errors.New("invalid configuration")

	// Persistence errors.
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")

	// Sync errors.
	ErrSyncInFlight = errors.New("a sync is already running")

	// Categorization errors.
	ErrNoTransactions = errors.New("no transactions to categorize")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
