package plaid

import "context"

// MockFetcher is a mock implementation of TransactionFetcher for testing.
type MockFetcher struct {
	// FetchFn can be set by tests to control behavior.
	FetchFn func(ctx context.Context, accessToken string, opts FetchOptions) (*FetchResult, error)

	// Call tracking
	FetchCalls []FetchCall
}

// FetchCall records the parameters of one fetch call.
type FetchCall struct {
	AccessToken string
	Opts        FetchOptions
}

// NewMockFetcher creates a new mock fetcher.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{FetchCalls: []FetchCall{}}
}

// FetchAccountsAndTransactions implements TransactionFetcher.
func (m *MockFetcher) FetchAccountsAndTransactions(ctx context.Context, accessToken string, opts FetchOptions) (*FetchResult, error) {
	m.FetchCalls = append(m.FetchCalls, FetchCall{AccessToken: accessToken, Opts: opts})

	if m.FetchFn != nil {
		return m.FetchFn(ctx, accessToken, opts)
	}
	return &FetchResult{}, nil
}

// Reset clears all call tracking.
func (m *MockFetcher) Reset() {
	m.FetchCalls = []FetchCall{}
}

// Ensure MockFetcher implements TransactionFetcher interface.
var _ TransactionFetcher = (*MockFetcher)(nil)
