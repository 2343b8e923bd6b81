package llm

import "strings"

// fallbackRule maps substrings of a transaction's description or merchant to a
// category. Rules are evaluated in order; the first match wins, so more
// specific keywords ("uber eats") must appear before broader ones ("uber").
type fallbackRule struct {
	category string
	keywords []string
}

var fallbackRules = []fallbackRule{
	{
		category: "Food & Dining",
		keywords: []string{
			"tim hortons", "starbucks", "uber eats", "skipthedishes", "doordash",
			"mcdonald", "a&w", "subway", "pizza", "restaurant", "coffee", "cafe",
		},
	},
	{
		category: "Groceries",
		keywords: []string{
			"loblaws", "sobeys", "no frills", "food basics", "farm boy", "metro",
			"costco", "walmart", "safeway", "grocery", "supermarket",
		},
	},
	{
		category: "Transportation",
		keywords: []string{
			"uber", "lyft", "presto", "petro-canada", "petro", "esso", "shell",
			"via rail", "go transit", "transit", "parking", "gas bar",
		},
	},
	{
		category: "Bills & Utilities",
		keywords: []string{
			"hydro", "bell canada", "bell ", "rogers", "telus", "fido", "koodo",
			"insurance", "utility", "internet", "rent payment",
		},
	},
	{
		category: "Entertainment",
		keywords: []string{
			"netflix", "spotify", "cineplex", "steam", "disney", "crave", "theatre",
		},
	},
	{
		category: "Health & Fitness",
		keywords: []string{
			"shoppers drug mart", "pharmacy", "pharmaprix", "goodlife", "gym",
			"dental", "clinic", "fitness", "physio",
		},
	},
	{
		category: "Shopping",
		keywords: []string{
			"amazon", "best buy", "canadian tire", "winners", "ikea", "indigo",
			"dollarama", "home depot",
		},
	},
	{
		category: "Income",
		keywords: []string{
			"payroll", "direct deposit", "salary", "pay ", "interest paid",
			"tax refund", "refund",
		},
	},
}

// fallbackCategory classifies one transaction deterministically. Unmatched
// inflows become Income; everything else falls through to Other.
func fallbackCategory(tx TxSummary) string {
	haystack := strings.ToLower(tx.Description + " " + tx.MerchantName)

	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.category
			}
		}
	}

	if tx.Amount > 0 {
		return "Income"
	}
	return "Other"
}
