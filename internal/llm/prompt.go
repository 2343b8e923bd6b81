package llm

import (
	"fmt"
	"math"
	"strings"
)

const systemPrompt = "You are a financial transaction classifier. You MUST respond with ONLY a minified JSON array. Do not include any explanatory text, markdown formatting, or commentary before or after the JSON. Start your response directly with [ and end with ]."

// buildPrompt renders one batched categorization request. A single call for
// the whole batch keeps us inside the provider's rate limits.
func buildPrompt(txs []TxSummary) string {
	var sb strings.Builder

	sb.WriteString("Categorize each of the following bank transactions into exactly one of these categories:\n")
	sb.WriteString(strings.Join(Categories, ", "))
	sb.WriteString("\n\nTransactions:\n")

	for _, tx := range txs {
		merchant := tx.MerchantName
		if merchant == "" {
			merchant = "unknown"
		}
		fmt.Fprintf(&sb, "- description: %q, amount: %.2f, merchant: %q\n",
			tx.Description, math.Abs(tx.Amount), merchant)
	}

	sb.WriteString("\nRespond with a minified JSON array of objects, one per transaction, ")
	sb.WriteString(`each shaped as {"description":"...","category":"..."}. `)
	sb.WriteString("The description field must match the transaction description verbatim.")

	return sb.String()
}
