package llm

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
)

// matchSuggestions resolves model output back to the transactions it was
// generated for. Exact description equality wins; otherwise a fuzzy match is
// accepted when the transaction description contains the first word of the
// model's description (case-insensitive) and, when the model echoed an amount,
// the absolute amounts differ by less than 0.01. Ties between several fuzzy
// candidates go to the smallest edit distance.
func matchSuggestions(txs []TxSummary, suggestions []suggestion) []CategorizedTransaction {
	claimed := make(map[string]bool, len(txs))
	results := make([]CategorizedTransaction, 0, len(suggestions))

	for _, s := range suggestions {
		tx := findMatch(txs, claimed, s)
		if tx == nil {
			continue
		}
		claimed[tx.ID] = true
		results = append(results, CategorizedTransaction{
			TransactionID: tx.ID,
			Description:   tx.Description,
			Category:      s.Category,
		})
	}

	return results
}

func findMatch(txs []TxSummary, claimed map[string]bool, s suggestion) *TxSummary {
	for i := range txs {
		if claimed[txs[i].ID] {
			continue
		}
		if txs[i].Description == s.Description {
			return &txs[i]
		}
	}

	firstWord := ""
	if fields := strings.Fields(s.Description); len(fields) > 0 {
		firstWord = strings.ToLower(fields[0])
	}
	if firstWord == "" {
		return nil
	}

	var best *TxSummary
	bestDistance := -1
	lowerSuggestion := strings.ToLower(s.Description)

	for i := range txs {
		if claimed[txs[i].ID] {
			continue
		}
		if !strings.Contains(strings.ToLower(txs[i].Description), firstWord) {
			continue
		}
		if s.Amount != nil && math.Abs(math.Abs(txs[i].Amount)-*s.Amount) >= 0.01 {
			continue
		}

		distance := levenshtein.ComputeDistance(strings.ToLower(txs[i].Description), lowerSuggestion)
		if best == nil || distance < bestDistance {
			best = &txs[i]
			bestDistance = distance
		}
	}

	return best
}
