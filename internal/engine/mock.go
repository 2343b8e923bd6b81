package engine

import (
	"context"

	"github.com/finleyhq/finley/internal/llm"
)

// MockCategorizer implements Categorizer for testing.
type MockCategorizer struct {
	CategorizeFn func(ctx context.Context, txs []llm.TxSummary) ([]llm.CategorizedTransaction, error)

	Calls [][]llm.TxSummary
}

func (m *MockCategorizer) Categorize(ctx context.Context, txs []llm.TxSummary) ([]llm.CategorizedTransaction, error) {
	m.Calls = append(m.Calls, txs)
	if m.CategorizeFn != nil {
		return m.CategorizeFn(ctx, txs)
	}
	return nil, nil
}
