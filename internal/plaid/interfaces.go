package plaid

import "context"

// TransactionFetcher defines the contract for fetching aggregator data.
// This interface allows for easy mocking in tests and swapping data sources.
type TransactionFetcher interface {
	FetchAccountsAndTransactions(ctx context.Context, accessToken string, opts FetchOptions) (*FetchResult, error)
}
