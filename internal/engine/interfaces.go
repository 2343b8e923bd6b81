package engine

import (
	"context"

	"github.com/finleyhq/finley/internal/llm"
)

// Categorizer defines the contract for best-effort transaction categorization.
type Categorizer interface {
	Categorize(ctx context.Context, txs []llm.TxSummary) ([]llm.CategorizedTransaction, error)
}
