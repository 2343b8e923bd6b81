package llm

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/finleyhq/finley/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient is a scriptable chat-completion client.
type stubClient struct {
	response string
	err      error
	calls    int
}

func (s *stubClient) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newTestCategorizer(t *testing.T, client Client) *Categorizer {
	t.Helper()
	c := &Categorizer{
		client:      client,
		cache:       newSuggestionCache(0),
		rateLimiter: newRateLimiter(600),
		logger:      slog.Default(),
	}
	t.Cleanup(c.Close)
	return c
}

func TestCategorize_EmptyBatch(t *testing.T) {
	c := newTestCategorizer(t, &stubClient{})
	_, err := c.Categorize(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrNoTransactions)
}

func TestCategorize_RemoteSuccess(t *testing.T) {
	client := &stubClient{
		response: `[{"description":"Tim Hortons Coffee","category":"Food & Dining"},{"description":"LOBLAWS #1042","category":"Groceries"}]`,
	}
	c := newTestCategorizer(t, client)

	got, err := c.Categorize(context.Background(), []TxSummary{
		{ID: "t1", Description: "Tim Hortons Coffee", Amount: -4.50},
		{ID: "t2", Description: "LOBLAWS #1042", Amount: -67.43},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[string]CategorizedTransaction{}
	for _, r := range got {
		byID[r.TransactionID] = r
	}
	assert.Equal(t, "Food & Dining", byID["t1"].Category)
	assert.Equal(t, "Groceries", byID["t2"].Category)
	assert.False(t, byID["t1"].FromFallback)
}

func TestCategorize_RemoteFailureFallsBack(t *testing.T) {
	client := &stubClient{err: fmt.Errorf("chat API error (status 500)")}
	c := newTestCategorizer(t, client)

	got, err := c.Categorize(context.Background(), []TxSummary{
		{ID: "t1", Description: "Tim Hortons Coffee", MerchantName: "Tim Hortons", Amount: -4.50},
	})
	require.NoError(t, err, "remote failure must never surface to the caller")
	require.Len(t, got, 1)
	assert.Equal(t, "Food & Dining", got[0].Category)
	assert.True(t, got[0].FromFallback)
}

func TestCategorize_MalformedResponseFallsBack(t *testing.T) {
	client := &stubClient{response: "I could not decide, sorry."}
	c := newTestCategorizer(t, client)

	got, err := c.Categorize(context.Background(), []TxSummary{
		{ID: "t1", Description: "MYSTERY SHOP", Amount: -9.99},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Other", got[0].Category)
	assert.True(t, got[0].FromFallback)
}

func TestCategorize_NilClientUsesRules(t *testing.T) {
	c := newTestCategorizer(t, nil)

	got, err := c.Categorize(context.Background(), []TxSummary{
		{ID: "t1", Description: "PAYROLL DEPOSIT", Amount: 2100.00},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Income", got[0].Category)
}

func TestCategorize_CacheAvoidsSecondCall(t *testing.T) {
	client := &stubClient{
		response: `[{"description":"NETFLIX.COM","category":"Entertainment"}]`,
	}
	c := newTestCategorizer(t, client)

	batch := []TxSummary{{ID: "t1", Description: "NETFLIX.COM", MerchantName: "Netflix", Amount: -16.99}}

	_, err := c.Categorize(context.Background(), batch)
	require.NoError(t, err)

	batch[0].ID = "t2" // same description, new transaction
	got, err := c.Categorize(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	require.Len(t, got, 1)
	assert.Equal(t, "Entertainment", got[0].Category)
}

func TestCategorize_PartialMatchTopsUpWithRules(t *testing.T) {
	// Model answers for one of two transactions; the other gets the rules.
	client := &stubClient{
		response: `[{"description":"Tim Hortons Coffee","category":"Food & Dining"}]`,
	}
	c := newTestCategorizer(t, client)

	got, err := c.Categorize(context.Background(), []TxSummary{
		{ID: "t1", Description: "Tim Hortons Coffee", Amount: -4.50},
		{ID: "t2", Description: "PRESTO FARE", Amount: -3.35},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[string]CategorizedTransaction{}
	for _, r := range got {
		byID[r.TransactionID] = r
	}
	assert.Equal(t, "Food & Dining", byID["t1"].Category)
	assert.Equal(t, "Transportation", byID["t2"].Category)
	assert.True(t, byID["t2"].FromFallback)
}
