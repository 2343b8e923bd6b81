package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestMatchSuggestions(t *testing.T) {
	txs := []TxSummary{
		{ID: "t1", Description: "Tim Hortons Coffee", Amount: -4.50},
		{ID: "t2", Description: "LOBLAWS #1042", Amount: -67.43},
		{ID: "t3", Description: "LOBLAWS GAS BAR", Amount: -41.00},
	}

	t.Run("exact description match", func(t *testing.T) {
		got := matchSuggestions(txs, []suggestion{
			{Description: "Tim Hortons Coffee", Category: "Food & Dining"},
		})
		require.Len(t, got, 1)
		assert.Equal(t, "t1", got[0].TransactionID)
	})

	t.Run("fuzzy match needs first word and amount", func(t *testing.T) {
		got := matchSuggestions(txs, []suggestion{
			{Description: "Loblaws grocery run", Amount: ptr(67.43), Category: "Groceries"},
		})
		require.Len(t, got, 1)
		assert.Equal(t, "t2", got[0].TransactionID)
	})

	t.Run("amount mismatch rejects fuzzy candidate", func(t *testing.T) {
		got := matchSuggestions(txs, []suggestion{
			{Description: "Loblaws grocery run", Amount: ptr(5.00), Category: "Groceries"},
		})
		assert.Empty(t, got)
	})

	t.Run("edit distance breaks ties", func(t *testing.T) {
		got := matchSuggestions(txs, []suggestion{
			{Description: "LOBLAWS GAS", Category: "Transportation"},
		})
		require.Len(t, got, 1)
		assert.Equal(t, "t3", got[0].TransactionID)
	})

	t.Run("each transaction claimed once", func(t *testing.T) {
		got := matchSuggestions(txs, []suggestion{
			{Description: "LOBLAWS #1042", Category: "Groceries"},
			{Description: "LOBLAWS #1042", Category: "Shopping"},
		})
		// The second suggestion falls through to the remaining fuzzy candidate.
		require.Len(t, got, 2)
		assert.NotEqual(t, got[0].TransactionID, got[1].TransactionID)
	})

	t.Run("unmatchable suggestion dropped", func(t *testing.T) {
		got := matchSuggestions(txs, []suggestion{
			{Description: "Completely Unrelated", Category: "Other"},
		})
		assert.Empty(t, got)
	})
}
