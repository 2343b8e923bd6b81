// Package llm provides transaction categorization backed by a chat-completion
// API, with a deterministic keyword fallback when the remote call fails.
package llm

import (
	"context"
	"time"
)

// Client defines the contract for a chat-completion provider.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds configuration for the categorizer.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	RateLimit   int
	CacheTTL    time.Duration
}

// TxSummary is the slice of a transaction the categorizer needs. Amount uses
// the local sign convention (positive = inflow).
type TxSummary struct {
	ID           string
	Description  string
	MerchantName string
	Amount       float64
}

// CategorizedTransaction is one categorization result, resolved back to the
// transaction it belongs to.
type CategorizedTransaction struct {
	TransactionID string
	Description   string
	Category      string
	// FromFallback is true when the rule classifier produced the category.
	FromFallback bool
}
