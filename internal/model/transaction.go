package model

import "time"

// Transaction represents a single persisted ledger line. Amount follows the
// local sign convention: positive = money in, negative = money out.
type Transaction struct {
	Date             time.Time
	CreatedAt        time.Time
	ID               string
	AccountID        string
	ExternalID       string
	Description      string
	MerchantName     string
	CategoryName     string
	UserID           string
	Amount           float64
	IsManualCategory bool
}

// ExternalTransaction is a ledger line as reported by the aggregator. Amount
// follows the aggregator convention: positive = debit (money out).
type ExternalTransaction struct {
	Date              time.Time
	ExternalID        string
	AccountExternalID string
	Description       string
	MerchantName      string
	CategoryPath      []string
	Amount            float64
}

// UpsertedTransaction is the result of persisting one transaction, carrying
// whether the row was newly inserted or already existed.
type UpsertedTransaction struct {
	Transaction
	NewlyInserted bool
}
